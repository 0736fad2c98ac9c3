// Package loginsdk is a small Go client for the login pipeline. It builds
// the encrypted credential envelopes the server expects and walks the
// slider, credential and MFA steps over HTTP. Used by the end-to-end tests
// and by external tooling that needs to sign in programmatically.
package loginsdk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
)

// credentials is the plaintext that goes inside the encrypted envelope. The
// timestamp is milliseconds since epoch, matching what browser clients send.
type credentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
}

// SealCredentials builds the encrypted login payload for the account step.
// The passphrase is the account scene token handed out by the slider step;
// every call embeds a fresh nonce and the current time.
func SealCredentials(username, password, sceneToken string) (string, error) {
	plaintext, err := json.Marshal(credentials{
		Username:  username,
		Password:  password,
		Nonce:     uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("loginsdk: marshal credentials: %w", err)
	}

	sealed, err := cryptox.SealEnvelope(plaintext, sceneToken)
	if err != nil {
		return "", fmt.Errorf("loginsdk: seal credentials: %w", err)
	}
	return sealed, nil
}
