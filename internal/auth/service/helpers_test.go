package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/internal/auth/store/drivers/sqlite"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const (
	testIP      = "203.0.113.10"
	testOtherIP = "203.0.113.99"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nodewatch-service-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	cryptox.SetMFAKeyPath(filepath.Join(dir, "mfa.key"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// newTestStore opens a migrated throwaway SQLite store.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_busy_timeout=5000"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// newSceneService wires a scene token service over a fresh store.
func newSceneService(t *testing.T) (*SceneTokenService, store.Store) {
	t.Helper()

	st := newTestStore(t)
	return &SceneTokenService{
		Store:    st,
		Keys:     NewKeychain(st),
		Registry: NewSceneRegistry(),
	}, st
}

// loginStack bundles the whole login pipeline over one store, the same way
// the application wires it.
type loginStack struct {
	store    store.Store
	registry *SceneRegistry
	scenes   *SceneTokenService
	slider   *SliderService
	box      *LoginBoxService
	mfa      *MFAService
	accounts *AccountTokenService
	users    *UserService
	login    *LoginService
}

func newLoginStack(t *testing.T) *loginStack {
	t.Helper()

	st := newTestStore(t)
	keys := NewKeychain(st)
	registry := NewSceneRegistry()

	scenes := &SceneTokenService{Store: st, Keys: keys, Registry: registry}
	slider := NewSliderService()
	box := &LoginBoxService{Store: st, Registry: registry}
	mfa := &MFAService{Store: st, Issuer: "NodeWatch"}
	accounts := &AccountTokenService{Store: st, Keys: keys}

	return &loginStack{
		store:    st,
		registry: registry,
		scenes:   scenes,
		slider:   slider,
		box:      box,
		mfa:      mfa,
		accounts: accounts,
		users:    &UserService{Store: st},
		login: &LoginService{
			Store:    st,
			Scenes:   scenes,
			Slider:   slider,
			Box:      box,
			MFA:      mfa,
			Accounts: accounts,
			Registry: registry,
		},
	}
}
