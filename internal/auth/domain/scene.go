package domain

// Scene identifies which step of the login pipeline a short-lived token was
// minted for. Tokens are only good for the scene they were issued under.
type Scene string

const (
	// SceneRobots covers the slider challenge hand-off.
	SceneRobots Scene = "robots"

	// SceneAccount covers the encrypted credential submission. The raw token
	// doubles as the transport passphrase.
	SceneAccount Scene = "account"

	// SceneMFA covers the TOTP step after a correct password.
	SceneMFA Scene = "mfa"
)

// Valid reports whether s is one of the known scenes.
func (s Scene) Valid() bool {
	switch s {
	case SceneRobots, SceneAccount, SceneMFA:
		return true
	}
	return false
}

func (s Scene) String() string { return string(s) }
