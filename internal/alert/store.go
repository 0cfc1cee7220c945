package alert

import (
	"sort"
	"sync"

	"crypto-telegram-bot/internal/types"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Store holds the min and max alert namespaces. Every mutation is persisted
// (both namespaces) before the lock is released.
type Store struct {
	mu         sync.Mutex
	persister  Persister
	namespaces map[types.Namespace]types.Alerts
	logger     *log.Entry
}

func NewStore(p Persister) *Store {
	return &Store{
		persister: p,
		namespaces: map[types.Namespace]types.Alerts{
			types.MinNamespace: {},
			types.MaxNamespace: {},
		},
		logger: log.WithField("component", "alert_store"),
	}
}

// Load reads both namespaces. Missing documents are created empty.
// A document that exists but cannot be parsed returns a *StorageError.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirty := false
	for _, ns := range types.Namespaces {
		alerts, found, err := s.persister.LoadDocument(ns)
		if err != nil {
			return &StorageError{Namespace: ns, Op: "load", Err: err}
		}
		if !found {
			s.logger.Infof("no %s document found, creating an empty one", ns.DocumentName())
			alerts = types.Alerts{}
			if err := s.persister.SaveDocument(ns, alerts); err != nil {
				return &StorageError{Namespace: ns, Op: "init", Err: err}
			}
		}
		s.namespaces[ns] = alerts
	}

	for _, ns := range types.Namespaces {
		for conversation := range s.namespaces[ns] {
			if s.ensureConversation(ns.Sibling(), conversation) {
				dirty = true
			}
		}
	}
	if dirty {
		if err := s.persistLocked(); err != nil {
			return err
		}
	}

	s.logger.Infof("loaded alerts for %d conversations", len(s.conversationsLocked()))
	return nil
}

func (s *Store) AddMin(conversation types.ConversationID, asset types.AssetID, threshold float64) error {
	return s.add(types.MinNamespace, conversation, asset, threshold)
}

func (s *Store) AddMax(conversation types.ConversationID, asset types.AssetID, threshold float64) error {
	return s.add(types.MaxNamespace, conversation, asset, threshold)
}

// Add inserts or overwrites the threshold of (conversation, asset) in ns.
func (s *Store) Add(ns types.Namespace, conversation types.ConversationID, asset types.AssetID, threshold float64) error {
	return s.add(ns, conversation, asset, threshold)
}

func (s *Store) add(ns types.Namespace, conversation types.ConversationID, asset types.AssetID, threshold float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addedOwn := s.ensureConversation(ns, conversation)
	addedSibling := s.ensureConversation(ns.Sibling(), conversation)
	previous, existed := s.namespaces[ns][conversation][asset]
	s.namespaces[ns][conversation][asset] = threshold

	if err := s.persistLocked(); err != nil {
		if existed {
			s.namespaces[ns][conversation][asset] = previous
		} else {
			delete(s.namespaces[ns][conversation], asset)
		}
		if addedOwn {
			delete(s.namespaces[ns], conversation)
		}
		if addedSibling {
			delete(s.namespaces[ns.Sibling()], conversation)
		}
		return err
	}

	s.logger.WithFields(log.Fields{
		"conversation": conversation,
		"asset":        asset,
		"namespace":    ns,
		"threshold":    threshold,
	}).Info("alert saved")
	return nil
}

// Remove deletes one alert. Removing an absent alert is a no-op.
func (s *Store) Remove(conversation types.ConversationID, asset types.AssetID, ns types.Namespace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold, ok := s.namespaces[ns][conversation][asset]
	if !ok {
		return nil
	}
	delete(s.namespaces[ns][conversation], asset)

	if err := s.persistLocked(); err != nil {
		s.namespaces[ns][conversation][asset] = threshold
		return err
	}
	return nil
}

// List copies both namespaces for conversation.
func (s *Store) List(conversation types.ConversationID) types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return types.Snapshot{
		Min: copyThresholds(s.namespaces[types.MinNamespace][conversation]),
		Max: copyThresholds(s.namespaces[types.MaxNamespace][conversation]),
	}
}

// Conversations returns the sorted union of conversation ids across both namespaces.
func (s *Store) Conversations() []types.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conversationsLocked()
}

// Assets returns the sorted union of assets watched by conversation.
func (s *Store) Assets(conversation types.ConversationID) []types.AssetID {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := lo.Union(
		lo.Keys(s.namespaces[types.MinNamespace][conversation]),
		lo.Keys(s.namespaces[types.MaxNamespace][conversation]),
	)
	sort.Slice(assets, func(i, j int) bool { return assets[i] < assets[j] })
	return assets
}

// Evaluate compares price with the current thresholds of (conversation, asset),
// removes every alert that fires and persists once. Min fires on price <= threshold,
// max on price >= threshold. If persisting fails nothing is removed.
func (s *Store) Evaluate(conversation types.ConversationID, asset types.AssetID, price float64) ([]types.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []types.Trigger
	for _, ns := range types.Namespaces {
		threshold, ok := s.namespaces[ns][conversation][asset]
		if !ok || !crosses(ns, price, threshold) {
			continue
		}
		fired = append(fired, types.Trigger{
			Conversation: conversation,
			Asset:        asset,
			Namespace:    ns,
			Threshold:    threshold,
			Price:        price,
		})
		delete(s.namespaces[ns][conversation], asset)
	}
	if len(fired) == 0 {
		return nil, nil
	}

	if err := s.persistLocked(); err != nil {
		for _, t := range fired {
			s.namespaces[t.Namespace][conversation][asset] = t.Threshold
		}
		return nil, err
	}
	return fired, nil
}

func crosses(ns types.Namespace, price, threshold float64) bool {
	if ns == types.MaxNamespace {
		return price >= threshold
	}
	return price <= threshold
}

func (s *Store) conversationsLocked() []types.ConversationID {
	conversations := lo.Union(
		lo.Keys(s.namespaces[types.MinNamespace]),
		lo.Keys(s.namespaces[types.MaxNamespace]),
	)
	sort.Slice(conversations, func(i, j int) bool { return conversations[i] < conversations[j] })
	return conversations
}

// ensureConversation reports whether an empty entry had to be created.
func (s *Store) ensureConversation(ns types.Namespace, conversation types.ConversationID) bool {
	if _, ok := s.namespaces[ns][conversation]; ok {
		return false
	}
	s.namespaces[ns][conversation] = map[types.AssetID]float64{}
	return true
}

func (s *Store) persistLocked() error {
	for _, ns := range types.Namespaces {
		if err := s.persister.SaveDocument(ns, s.namespaces[ns]); err != nil {
			s.logger.WithError(err).Errorf("failed to persist %s", ns.DocumentName())
			return &StorageError{Namespace: ns, Op: "save", Err: err}
		}
	}
	return nil
}

func copyThresholds(src map[types.AssetID]float64) map[types.AssetID]float64 {
	dst := make(map[types.AssetID]float64, len(src))
	for asset, threshold := range src {
		dst[asset] = threshold
	}
	return dst
}
