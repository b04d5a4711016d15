package envelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cyberinferno/chansock/idgen"
)

// authWireRequest is the JSON shape of AuthRequest carried as the base64
// "auth" query parameter.
type authWireRequest struct {
	Kind        AuthKind `json:"kind"`
	Token       string   `json:"token,omitempty"`
	SignedToken string   `json:"signed_token,omitempty"`
}

// EncodeQuery renders h as the set of URL query parameters the client
// attaches to the WebSocket upgrade request: v, cid, env, auth, connect.
func EncodeQuery(h Handshake) (url.Values, error) {
	authBytes, err := json.Marshal(authWireRequest{
		Kind:        h.Auth.Kind,
		Token:       h.Auth.Token,
		SignedToken: h.Auth.SignedToken,
	})
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding auth request: %w", err)
	}

	values := url.Values{}
	values.Set("v", h.Version)
	values.Set("cid", h.ClientId.String())
	values.Set("env", envTypeToWire(h.Env))
	values.Set("auth", base64.StdEncoding.EncodeToString(authBytes))
	values.Set("connect", base64.StdEncoding.EncodeToString(h.ConnectMsg))
	return values, nil
}

// DecodeQuery parses the handshake fields out of an upgrade request's URL
// query parameters, as produced by EncodeQuery.
func DecodeQuery(values url.Values) (Handshake, error) {
	clientId, err := idgen.ParseClientId(values.Get("cid"))
	if err != nil {
		return Handshake{}, fmt.Errorf("envelope: decoding handshake: %w", err)
	}

	env, err := envTypeFromWire(values.Get("env"))
	if err != nil {
		return Handshake{}, fmt.Errorf("envelope: decoding handshake: %w", err)
	}

	authBytes, err := base64.StdEncoding.DecodeString(values.Get("auth"))
	if err != nil {
		return Handshake{}, fmt.Errorf("envelope: decoding handshake auth: %w", err)
	}
	var wireAuth authWireRequest
	if err := json.Unmarshal(authBytes, &wireAuth); err != nil {
		return Handshake{}, fmt.Errorf("envelope: decoding handshake auth: %w", err)
	}

	connectMsg, err := base64.StdEncoding.DecodeString(values.Get("connect"))
	if err != nil {
		return Handshake{}, fmt.Errorf("envelope: decoding handshake connect message: %w", err)
	}

	return Handshake{
		Version:  values.Get("v"),
		ClientId: clientId,
		Env:      env,
		Auth: AuthRequest{
			Kind:        wireAuth.Kind,
			Token:       wireAuth.Token,
			SignedToken: wireAuth.SignedToken,
		},
		ConnectMsg: connectMsg,
	}, nil
}

func envTypeToWire(e EnvType) string {
	if e == EnvBrowser {
		return "browser"
	}
	return "native"
}

func envTypeFromWire(s string) (EnvType, error) {
	switch s {
	case "native", "":
		return EnvNative, nil
	case "browser":
		return EnvBrowser, nil
	default:
		return 0, fmt.Errorf("unknown env type %q", s)
	}
}
