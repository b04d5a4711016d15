// echoclient dials an echoserver, sends one message and one request,
// and logs everything it gets back.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberinferno/chansock/client"
	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/logger"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:8080/ws", "echoserver URL")
	secret := flag.String("secret", "", "shared secret, if the server requires one")
	flag.Parse()

	log := logger.NewZerologLogger(zerolog.New(os.Stdout), "chansock-echoclient", zerolog.InfoLevel)

	auth := envelope.AuthRequest{}
	if *secret != "" {
		auth = envelope.AuthRequest{Kind: envelope.AuthKindSecret, Token: *secret}
	}

	c, err := client.New(*url, auth, client.DefaultClientConfig(), []byte("hello"), log)
	if err != nil {
		log.Error("echoclient: failed building client", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}
	defer c.Close()

	go func() {
		for {
			report, ok := c.Next()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			switch report.Kind {
			case client.ReportConnected:
				log.Info("connected", logger.Field{Key: "client_id", Value: c.ClientId().String()})
			case client.ReportDisconnected:
				log.Info("disconnected", logger.Field{Key: "reason", Value: report.Reason})
			case client.ReportReconnecting:
				log.Info("reconnecting", logger.Field{Key: "reason", Value: report.Reason})
			case client.ReportMsg:
				log.Info("echo received", logger.Field{Key: "payload", Value: string(report.Payload)})
			case client.ReportResponse:
				log.Info("response received", logger.Field{Key: "request_id", Value: report.RequestId}, logger.Field{Key: "payload", Value: string(report.Payload)})
			case client.ReportAck:
				log.Info("request acked", logger.Field{Key: "request_id", Value: report.RequestId})
			case client.ReportReject:
				log.Info("request rejected", logger.Field{Key: "request_id", Value: report.RequestId})
			case client.ReportClosedBySelf:
				log.Info("closed by self")
			case client.ReportDead:
				log.Info("client dead", logger.Field{Key: "reason", Value: report.Reason})
				return
			}
		}
	}()

	for !waitConnected(c) {
		if reason, ok := c.IsDead(); ok {
			log.Error("echoclient: never connected", logger.Field{Key: "reason", Value: reason})
			os.Exit(1)
		}
	}

	if _, err := c.Send([]byte("ping")); err != nil {
		log.Warn("echoclient: send failed", logger.Field{Key: "error", Value: err})
	}

	req, err := c.Request([]byte("ping-request"))
	if err != nil {
		log.Warn("echoclient: request failed", logger.Field{Key: "error", Value: err})
	} else {
		log.Info("request queued", logger.Field{Key: "status", Value: req.Status().String()})
	}

	time.Sleep(2 * time.Second)
}

func waitConnected(c *client.Client) bool {
	connected := c.State() == client.Connected
	if !connected {
		time.Sleep(20 * time.Millisecond)
	}
	return connected
}
