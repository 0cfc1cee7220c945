package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
)

// Persister stores the JSON document of one namespace.
// LoadDocument reports found=false when the document does not exist yet.
type Persister interface {
	LoadDocument(ns types.Namespace) (alerts types.Alerts, found bool, err error)
	SaveDocument(ns types.Namespace, alerts types.Alerts) error
}

// StorageError means persisted alert state is corrupt or cannot be read or written.
type StorageError struct {
	Namespace types.Namespace
	Op        string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("alert storage %s %s: %v", e.Op, e.Namespace.DocumentName(), e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// EncodeDocument renders {"<conversation>": {"<asset>": threshold}}.
func EncodeDocument(alerts types.Alerts) ([]byte, error) {
	if alerts == nil {
		alerts = types.Alerts{}
	}
	data, err := json.Marshal(alerts)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode alerts")
	}
	return data, nil
}

// DecodeDocument parses a document written by EncodeDocument. Empty input is an error.
func DecodeDocument(data []byte) (types.Alerts, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty alert document")
	}
	var alerts types.Alerts
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, errors.Wrap(err, "could not decode alerts")
	}
	if alerts == nil {
		alerts = types.Alerts{}
	}
	for conversation, assets := range alerts {
		if assets == nil {
			alerts[conversation] = map[types.AssetID]float64{}
		}
	}
	return alerts, nil
}

// FilePersister keeps each namespace in <dir>/<namespace>_alerts.json.
type FilePersister struct {
	Dir string
}

func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{Dir: dir}
}

func (p *FilePersister) path(ns types.Namespace) string {
	return filepath.Join(p.Dir, ns.DocumentName()+".json")
}

func (p *FilePersister) LoadDocument(ns types.Namespace) (types.Alerts, bool, error) {
	data, err := os.ReadFile(p.path(ns))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not read %s", p.path(ns))
	}

	alerts, err := DecodeDocument(data)
	if err != nil {
		return nil, true, errors.Wrapf(err, "%s", p.path(ns))
	}
	return alerts, true, nil
}

// SaveDocument writes to a temp file and renames it over the old document.
func (p *FilePersister) SaveDocument(ns types.Namespace, alerts types.Alerts) error {
	data, err := EncodeDocument(alerts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "could not create %s", p.Dir)
	}

	tmp, err := os.CreateTemp(p.Dir, ns.DocumentName()+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "could not write alerts")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close temp file")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), p.path(ns)), "could not replace %s", p.path(ns))
}
