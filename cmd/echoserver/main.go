// echoserver is a minimal chansock server: it echoes every Msg it
// receives back to the sender and answers every Request with a Response
// carrying the request's own payload.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cyberinferno/chansock/envelope"
	"github.com/cyberinferno/chansock/logger"
	"github.com/cyberinferno/chansock/server"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	secret := flag.String("secret", "", "if set, require this shared secret on handshake")
	flag.Parse()

	log := logger.NewZerologLogger(zerolog.New(os.Stdout), "chansock-echoserver", zerolog.InfoLevel)

	auth := envelope.NoAuth()
	if *secret != "" {
		auth = envelope.SecretAuth(*secret)
	}

	srv, err := server.New(auth, server.DefaultAcceptor(), server.DefaultServerConfig(), log)
	if err != nil {
		log.Error("echoserver: failed building server", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	go func() {
		for {
			report, ok := srv.Next()
			if !ok {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			switch report.Kind {
			case server.ReportConnected:
				log.Info("client connected", logger.Field{Key: "client_id", Value: report.ClientId.String()})
			case server.ReportDisconnected:
				log.Info("client disconnected", logger.Field{Key: "client_id", Value: report.ClientId.String()})
			case server.ReportMsg:
				if err := srv.Send(report.ClientId, report.Payload); err != nil {
					log.Warn("echoserver: failed echoing msg", logger.Field{Key: "error", Value: err})
				}
			case server.ReportRequest:
				if err := report.Token.Respond(report.Payload); err != nil {
					log.Warn("echoserver: failed responding", logger.Field{Key: "error", Value: err})
				}
			}
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	log.Info("echoserver: starting", logger.Field{Key: "addr", Value: *addr})
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Error("echoserver: exited", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}
}
