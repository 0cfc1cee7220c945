package alert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

// memoryPersister records saves and can be told to fail.
type memoryPersister struct {
	docs  map[types.Namespace][]byte
	saves int
	fail  error
}

func newMemoryPersister() *memoryPersister {
	return &memoryPersister{docs: map[types.Namespace][]byte{}}
}

func (p *memoryPersister) LoadDocument(ns types.Namespace) (types.Alerts, bool, error) {
	raw, ok := p.docs[ns]
	if !ok {
		return nil, false, nil
	}
	alerts, err := DecodeDocument(raw)
	return alerts, true, err
}

func (p *memoryPersister) SaveDocument(ns types.Namespace, alerts types.Alerts) error {
	if p.fail != nil {
		return p.fail
	}
	data, err := EncodeDocument(alerts)
	if err != nil {
		return err
	}
	p.docs[ns] = data
	p.saves++
	return nil
}

func loadedStore(t *testing.T, p Persister) *Store {
	t.Helper()
	store := NewStore(p)
	require.NoError(t, store.Load())
	return store
}

func TestStore_LoadCreatesMissingDocuments(t *testing.T) {
	dir := t.TempDir()
	loadedStore(t, NewFilePersister(dir))

	for _, name := range []string{"min_alerts.json", "max_alerts.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	}
}

func TestStore_LoadCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "min_alerts.json"), []byte(`{"42": [1,2`), 0o644))

	err := NewStore(NewFilePersister(dir)).Load()
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, types.MinNamespace, storageErr.Namespace)
	assert.Equal(t, "load", storageErr.Op)
}

func TestStore_LoadEmptyFileIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_alerts.json"), nil, 0o644))

	var storageErr *StorageError
	assert.ErrorAs(t, NewStore(NewFilePersister(dir)).Load(), &storageErr)
}

func TestStore_LoadRepairsSiblingEntries(t *testing.T) {
	p := newMemoryPersister()
	p.docs[types.MinNamespace] = []byte(`{"42":{"ethereum":2000}}`)
	p.docs[types.MaxNamespace] = []byte(`{"7":{"monero":300}}`)

	store := loadedStore(t, p)
	assert.Equal(t, []types.ConversationID{"42", "7"}, store.Conversations())

	repaired, _, err := p.LoadDocument(types.MaxNamespace)
	require.NoError(t, err)
	assert.Contains(t, repaired, types.ConversationID("42"))
	assert.Empty(t, repaired["42"])
}

func TestStore_AddMinThenList(t *testing.T) {
	for _, threshold := range []float64{0.00000123, 1, 2000, 65432.1} {
		store := loadedStore(t, newMemoryPersister())
		require.NoError(t, store.AddMin("42", "ethereum", threshold))

		snapshot := store.List("42")
		assert.Equal(t, threshold, snapshot.Min["ethereum"])
		assert.Empty(t, snapshot.Max)
	}
}

func TestStore_AddOverwrites(t *testing.T) {
	store := loadedStore(t, newMemoryPersister())
	require.NoError(t, store.AddMax("42", "ethereum", 3000))
	require.NoError(t, store.AddMax("42", "ethereum", 3500))

	snapshot := store.List("42")
	assert.Len(t, snapshot.Max, 1)
	assert.Equal(t, 3500.0, snapshot.Max["ethereum"])
}

func TestStore_AddKeepsSiblingInvariant(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	require.NoError(t, store.AddMax("42", "tron", 0.5))

	minDoc, _, err := p.LoadDocument(types.MinNamespace)
	require.NoError(t, err)
	assert.Contains(t, minDoc, types.ConversationID("42"))
	assert.Equal(t, []types.AssetID{"tron"}, store.Assets("42"))
}

func TestStore_AddPersistsBothNamespaces(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	before := p.saves

	require.NoError(t, store.AddMin("42", "ethereum", 2000))
	assert.Equal(t, before+2, p.saves)
}

func TestStore_AddRollsBackOnPersistFailure(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	require.NoError(t, store.AddMin("42", "ethereum", 2000))

	p.fail = errors.New("disk full")
	err := store.AddMin("42", "ethereum", 1000)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 2000.0, store.List("42").Min["ethereum"])

	err = store.AddMax("9", "monero", 1)
	require.Error(t, err)
	assert.Equal(t, []types.ConversationID{"42"}, store.Conversations())
}

func TestStore_Remove(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	require.NoError(t, store.AddMin("42", "ethereum", 2000))
	require.NoError(t, store.AddMax("42", "ethereum", 4000))

	require.NoError(t, store.Remove("42", "ethereum", types.MinNamespace))
	snapshot := store.List("42")
	assert.NotContains(t, snapshot.Min, types.AssetID("ethereum"))
	assert.Equal(t, 4000.0, snapshot.Max["ethereum"])

	saves := p.saves
	require.NoError(t, store.Remove("42", "bitcoin", types.MinNamespace))
	require.NoError(t, store.Remove("nobody", "ethereum", types.MaxNamespace))
	assert.Equal(t, saves, p.saves)
}

func TestStore_ListIsACopy(t *testing.T) {
	store := loadedStore(t, newMemoryPersister())
	require.NoError(t, store.AddMin("42", "ethereum", 2000))

	snapshot := store.List("42")
	snapshot.Min["ethereum"] = 1
	assert.Equal(t, 2000.0, store.List("42").Min["ethereum"])
	assert.True(t, store.List("unknown").Empty())
}

func TestStore_EvaluateBoundaries(t *testing.T) {
	store := loadedStore(t, newMemoryPersister())
	require.NoError(t, store.AddMin("1", "ethereum", 100))
	require.NoError(t, store.AddMax("1", "monero", 50))

	fired, err := store.Evaluate("1", "ethereum", 100.01)
	require.NoError(t, err)
	assert.Empty(t, fired)

	fired, err = store.Evaluate("1", "ethereum", 100)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, types.MinNamespace, fired[0].Namespace)

	fired, err = store.Evaluate("1", "monero", 49.99)
	require.NoError(t, err)
	assert.Empty(t, fired)

	fired, err = store.Evaluate("1", "monero", 50)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, types.Trigger{Conversation: "1", Asset: "monero", Namespace: types.MaxNamespace, Threshold: 50, Price: 50}, fired[0])

	assert.True(t, store.List("1").Empty())
}

func TestStore_EvaluateBothSides(t *testing.T) {
	store := loadedStore(t, newMemoryPersister())
	require.NoError(t, store.AddMin("1", "tron", 0.2))
	require.NoError(t, store.AddMax("1", "tron", 0.2))

	fired, err := store.Evaluate("1", "tron", 0.2)
	require.NoError(t, err)
	assert.Len(t, fired, 2)
}

func TestStore_EvaluateKeepsAlertsOnPersistFailure(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	require.NoError(t, store.AddMin("1", "ethereum", 100))

	p.fail = errors.New("read-only")
	fired, err := store.Evaluate("1", "ethereum", 50)
	require.Error(t, err)
	assert.Empty(t, fired)
	assert.Equal(t, 100.0, store.List("1").Min["ethereum"])
}

func TestStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	store := loadedStore(t, NewFilePersister(dir))
	require.NoError(t, store.AddMin("42", "ethereum", 2000))
	require.NoError(t, store.AddMax("42", "polkadot", 12.5))

	restarted := loadedStore(t, NewFilePersister(dir))
	snapshot := restarted.List("42")
	assert.Equal(t, 2000.0, snapshot.Min["ethereum"])
	assert.Equal(t, 12.5, snapshot.Max["polkadot"])

	data, err := os.ReadFile(filepath.Join(dir, "min_alerts.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"42":{"ethereum":2000}}`, string(data))
}

func TestBuntPersister(t *testing.T) {
	p, err := NewBuntPersister(":memory:")
	require.NoError(t, err)
	defer p.Close()

	store := loadedStore(t, p)
	require.NoError(t, store.AddMin("42", "ethereum", 2000))

	restarted := loadedStore(t, p)
	assert.Equal(t, 2000.0, restarted.List("42").Min["ethereum"])

	require.NoError(t, p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set("max_alerts", "not json", nil)
		return err
	}))
	var storageErr *StorageError
	assert.ErrorAs(t, NewStore(p).Load(), &storageErr)
}

func TestStore_ConcurrentWritersAndEvaluator(t *testing.T) {
	p := newMemoryPersister()
	store := loadedStore(t, p)
	prices := &fakePrices{prices: map[types.AssetID]float64{"ethereum": 100, "monero": 100}}
	evaluator := NewEvaluator(store, prices, &fakeNotifier{}, EvaluatorConfig{})

	const writers, iterations = 4, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				conversation := types.ConversationID(fmt.Sprintf("%d", (w+i)%5))
				threshold := float64((w*31+i*17)%100 + 50)
				if i%2 == 0 {
					assert.NoError(t, store.AddMin(conversation, "ethereum", threshold))
				} else {
					assert.NoError(t, store.AddMax(conversation, "monero", threshold))
				}
			}
		}(w)
	}

	done := make(chan struct{})
	var evalWG sync.WaitGroup
	evalWG.Add(2)
	go func() {
		defer evalWG.Done()
		for {
			select {
			case <-done:
				return
			default:
				evaluator.RunCycle(context.Background())
			}
		}
	}()
	go func() {
		defer evalWG.Done()
		for {
			select {
			case <-done:
				return
			default:
				for _, conversation := range store.Conversations() {
					_, err := store.Evaluate(conversation, "monero", 100)
					assert.NoError(t, err)
				}
			}
		}
	}()

	wg.Wait()
	close(done)
	evalWG.Wait()

	persistedMin, err := DecodeDocument(p.docs[types.MinNamespace])
	require.NoError(t, err)
	persistedMax, err := DecodeDocument(p.docs[types.MaxNamespace])
	require.NoError(t, err)

	conversations := store.Conversations()
	require.NotEmpty(t, conversations)
	assert.Len(t, persistedMin, len(conversations))
	assert.Len(t, persistedMax, len(conversations))
	for _, conversation := range conversations {
		snapshot := store.List(conversation)
		require.Contains(t, persistedMin, conversation)
		require.Contains(t, persistedMax, conversation)
		assert.Equal(t, snapshot.Min, persistedMin[conversation])
		assert.Equal(t, snapshot.Max, persistedMax[conversation])
	}
}
