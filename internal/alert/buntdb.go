package alert

import (
	"crypto-telegram-bot/internal/types"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

// BuntPersister keeps both documents in a buntdb file under "<namespace>_alerts".
type BuntPersister struct {
	db *buntdb.DB
}

// NewBuntPersister opens path; ":memory:" keeps everything in memory.
func NewBuntPersister(path string) (*BuntPersister, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open buntdb %s", path)
	}
	return &BuntPersister{db: db}, nil
}

func (p *BuntPersister) LoadDocument(ns types.Namespace) (types.Alerts, bool, error) {
	var raw string
	err := p.db.View(func(tx *buntdb.Tx) error {
		var err error
		raw, err = tx.Get(ns.DocumentName())
		return err
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "buntdb read failed")
	}

	alerts, err := DecodeDocument([]byte(raw))
	if err != nil {
		return nil, true, err
	}
	return alerts, true, nil
}

func (p *BuntPersister) SaveDocument(ns types.Namespace, alerts types.Alerts) error {
	data, err := EncodeDocument(alerts)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(ns.DocumentName(), string(data), nil)
		return errors.Wrap(err, "buntdb write failed")
	})
}

func (p *BuntPersister) Close() error {
	return p.db.Close()
}
