package directory

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"hedgefarm/internal/exchange"
	"hedgefarm/internal/models"
	"hedgefarm/pkg/crypto"
)

type fakeSource struct {
	accounts []*models.Account
	err      error
}

func (f *fakeSource) ListEnabled(_ context.Context) ([]*models.Account, error) {
	return f.accounts, f.err
}

// fakeClient запоминает расшифрованные ключи для проверки
type fakeClient struct {
	label     string
	apiKey    string
	secretKey string
}

func (f *fakeClient) Label() string { return f.label }
func (f *fakeClient) PlaceOrder(context.Context, exchange.OrderRequest) (*exchange.Order, error) {
	return nil, nil
}
func (f *fakeClient) GetSymbolPrice(context.Context, string) (float64, error) { return 0, nil }
func (f *fakeClient) SetLeverage(context.Context, string, int) error          { return nil }
func (f *fakeClient) GetPositions(context.Context) ([]exchange.Position, error) {
	return nil, nil
}

func encryptedAccount(t *testing.T, key []byte, id int, label, group string, position int) *models.Account {
	t.Helper()

	apiKey, err := crypto.Encrypt("api-"+label, key)
	if err != nil {
		t.Fatalf("encrypt api key: %v", err)
	}
	secretKey, err := crypto.Encrypt("secret-"+label, key)
	if err != nil {
		t.Fatalf("encrypt secret key: %v", err)
	}

	return &models.Account{
		ID:         id,
		Label:      label,
		GroupLabel: group,
		Position:   position,
		APIKey:     apiKey,
		SecretKey:  secretKey,
		Enabled:    true,
	}
}

func newTestDirectory(source AccountSource, key []byte) *Directory {
	d := New(source, key, zap.NewNop())
	d.newClient = func(label, apiKey, secretKey string) exchange.Client {
		return &fakeClient{label: label, apiKey: apiKey, secretKey: secretKey}
	}
	return d
}

func TestBuildUnitsPairsConsecutiveAccounts(t *testing.T) {
	key := crypto.DeriveKey("test-passphrase-0123456789")

	// Позиции перемешаны: разбиение должно идти по порядку позиций
	source := &fakeSource{accounts: []*models.Account{
		encryptedAccount(t, key, 3, "acc-3", "alpha", 3),
		encryptedAccount(t, key, 1, "acc-1", "alpha", 1),
		encryptedAccount(t, key, 4, "acc-4", "alpha", 4),
		encryptedAccount(t, key, 2, "acc-2", "alpha", 2),
	}}

	d := newTestDirectory(source, key)

	units, err := d.BuildUnits(context.Background())
	if err != nil {
		t.Fatalf("BuildUnits() error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}

	g := units[0].Group
	if len(g.Pairs) != 2 {
		t.Fatalf("pairs = %d, want 2", len(g.Pairs))
	}

	// Пары 1-2 и 3-4 по позициям, первый аккаунт пары - лонг
	if g.Pairs[0].Long.Label != "acc-1" || g.Pairs[0].Short.Label != "acc-2" {
		t.Errorf("pair 1 = %s/%s, want acc-1/acc-2", g.Pairs[0].Long.Label, g.Pairs[0].Short.Label)
	}
	if g.Pairs[1].Long.Label != "acc-3" || g.Pairs[1].Short.Label != "acc-4" {
		t.Errorf("pair 2 = %s/%s, want acc-3/acc-4", g.Pairs[1].Long.Label, g.Pairs[1].Short.Label)
	}

	if g.State != models.GroupActive {
		t.Errorf("group state = %s, want ACTIVE", g.State)
	}
	if len(units[0].Clients) != 4 {
		t.Errorf("clients = %d, want 4", len(units[0].Clients))
	}

	// Ключи клиента расшифрованы из данных аккаунта
	fc := units[0].Clients[1].(*fakeClient)
	if fc.apiKey != "api-acc-1" || fc.secretKey != "secret-acc-1" {
		t.Errorf("decrypted keys = %s/%s", fc.apiKey, fc.secretKey)
	}
}

func TestBuildUnitsSkipsOddGroups(t *testing.T) {
	key := crypto.DeriveKey("test-passphrase-0123456789")

	source := &fakeSource{accounts: []*models.Account{
		encryptedAccount(t, key, 1, "acc-1", "odd", 1),
		encryptedAccount(t, key, 2, "acc-2", "odd", 2),
		encryptedAccount(t, key, 3, "acc-3", "odd", 3),
		encryptedAccount(t, key, 4, "acc-4", "even", 1),
		encryptedAccount(t, key, 5, "acc-5", "even", 2),
	}}

	d := newTestDirectory(source, key)

	units, err := d.BuildUnits(context.Background())
	if err != nil {
		t.Fatalf("BuildUnits() error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1 (odd group skipped)", len(units))
	}
	if units[0].Group.Label != "even" {
		t.Errorf("group = %s, want even", units[0].Group.Label)
	}
}

func TestBuildUnitsNoTradableGroups(t *testing.T) {
	key := crypto.DeriveKey("test-passphrase-0123456789")

	source := &fakeSource{accounts: []*models.Account{
		encryptedAccount(t, key, 1, "acc-1", "odd", 1),
	}}

	d := newTestDirectory(source, key)

	if _, err := d.BuildUnits(context.Background()); err == nil {
		t.Error("BuildUnits() must fail when no group is tradable")
	}
}

func TestBuildUnitsSourceError(t *testing.T) {
	d := newTestDirectory(&fakeSource{err: errors.New("db down")}, crypto.DeriveKey("test-passphrase-0123456789"))

	if _, err := d.BuildUnits(context.Background()); err == nil {
		t.Error("BuildUnits() must propagate source error")
	}
}

func TestBuildUnitsSkipsGroupWithBadCiphertext(t *testing.T) {
	key := crypto.DeriveKey("test-passphrase-0123456789")

	broken := encryptedAccount(t, key, 1, "acc-1", "alpha", 1)
	broken.SecretKey = "not-a-ciphertext"

	source := &fakeSource{accounts: []*models.Account{
		broken,
		encryptedAccount(t, key, 2, "acc-2", "alpha", 2),
		encryptedAccount(t, key, 3, "acc-3", "beta", 1),
		encryptedAccount(t, key, 4, "acc-4", "beta", 2),
	}}

	d := newTestDirectory(source, key)

	units, err := d.BuildUnits(context.Background())
	if err != nil {
		t.Fatalf("BuildUnits() error: %v", err)
	}
	if len(units) != 1 || units[0].Group.Label != "beta" {
		t.Errorf("units = %+v, want only beta", units)
	}
}

func TestAllClientsIncludesOddGroups(t *testing.T) {
	key := crypto.DeriveKey("test-passphrase-0123456789")

	source := &fakeSource{accounts: []*models.Account{
		encryptedAccount(t, key, 1, "acc-1", "odd", 1),
		encryptedAccount(t, key, 2, "acc-2", "odd", 2),
		encryptedAccount(t, key, 3, "acc-3", "odd", 3),
	}}

	d := newTestDirectory(source, key)

	clients, err := d.AllClients(context.Background())
	if err != nil {
		t.Fatalf("AllClients() error: %v", err)
	}
	// Для flatten нечётность группы не важна
	if len(clients) != 3 {
		t.Errorf("clients = %d, want 3", len(clients))
	}
}
