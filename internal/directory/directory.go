// Package directory собирает торговые группы из аккаунтов.
package directory

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hedgefarm/internal/bot"
	"hedgefarm/internal/exchange"
	"hedgefarm/internal/models"
	"hedgefarm/pkg/crypto"
)

// AccountSource отдаёт включённые аккаунты (repository)
type AccountSource interface {
	ListEnabled(ctx context.Context) ([]*models.Account, error)
}

// Directory строит группы и биржевых клиентов из аккаунтов.
//
// Разбиение детерминированное: аккаунты группируются по метке группы,
// сортируются по позиции и попарно связываются: 1-2, 3-4 и так далее.
// Первый аккаунт пары держит лонг, второй шорт.
type Directory struct {
	source AccountSource
	key    []byte // AES ключ для расшифровки API ключей
	log    *zap.Logger

	// newClient инъектируется в тестах
	newClient func(label, apiKey, secretKey string) exchange.Client
}

// New создаёт directory с боевым клиентом биржи
func New(source AccountSource, encryptionKey []byte, log *zap.Logger) *Directory {
	return &Directory{
		source: source,
		key:    encryptionKey,
		log:    log,
		newClient: func(label, apiKey, secretKey string) exchange.Client {
			return exchange.NewBinance(label, apiKey, secretKey)
		},
	}
}

// BuildUnits загружает аккаунты, расшифровывает ключи и собирает группы
// с клиентами. Группы с нечётным числом аккаунтов пропускаются: их
// невозможно разбить на хедж-пары.
func (d *Directory) BuildUnits(ctx context.Context) ([]bot.GroupUnit, error) {
	accounts, err := d.source.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	byGroup := map[string][]*models.Account{}
	for _, acc := range accounts {
		byGroup[acc.GroupLabel] = append(byGroup[acc.GroupLabel], acc)
	}

	// Стабильный порядок групп между рестартами
	labels := make([]string, 0, len(byGroup))
	for label := range byGroup {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var units []bot.GroupUnit
	groupID := 0

	for _, label := range labels {
		members := byGroup[label]
		if len(members)%2 != 0 {
			d.log.Warn("группа с нечётным числом аккаунтов пропущена",
				zap.String("group", label),
				zap.Int("accounts", len(members)))
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			return members[i].Position < members[j].Position
		})

		clients := make(map[int]exchange.Client, len(members))
		ok := true
		for _, acc := range members {
			client, err := d.buildClient(acc)
			if err != nil {
				d.log.Error("не удалось создать клиента аккаунта, группа пропущена",
					zap.String("group", label),
					zap.String("account", acc.Label),
					zap.Error(err))
				ok = false
				break
			}
			clients[acc.ID] = client
		}
		if !ok {
			continue
		}

		groupID++
		group := &models.Group{
			ID:       groupID,
			Label:    label,
			Accounts: members,
			State:    models.GroupActive,
		}
		for i := 0; i < len(members); i += 2 {
			group.Pairs = append(group.Pairs, models.HedgePair{
				PairID: i/2 + 1,
				Long:   members[i],
				Short:  members[i+1],
			})
		}

		units = append(units, bot.GroupUnit{Group: group, Clients: clients})
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("no tradable groups among %d accounts", len(accounts))
	}

	return units, nil
}

// AllClients возвращает клиентов всех включённых аккаунтов для flatten.
// В отличие от BuildUnits, нечётные группы не пропускаются: закрывать
// позиции нужно на каждом аккаунте.
func (d *Directory) AllClients(ctx context.Context) ([]exchange.Client, error) {
	accounts, err := d.source.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	clients := make([]exchange.Client, 0, len(accounts))
	for _, acc := range accounts {
		client, err := d.buildClient(acc)
		if err != nil {
			d.log.Error("не удалось создать клиента аккаунта",
				zap.String("account", acc.Label),
				zap.Error(err))
			continue
		}
		clients = append(clients, client)
	}

	return clients, nil
}

// buildClient расшифровывает ключи аккаунта и создаёт биржевого клиента
func (d *Directory) buildClient(acc *models.Account) (exchange.Client, error) {
	apiKey, err := crypto.Decrypt(acc.APIKey, d.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key: %w", err)
	}
	secretKey, err := crypto.Decrypt(acc.SecretKey, d.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret key: %w", err)
	}
	return d.newClient(acc.Label, apiKey, secretKey), nil
}
