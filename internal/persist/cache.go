// Package persist keeps the switch tree and its byte-addressable store in sync.
//
// Store layout: byte 0 holds the number of stored records, followed by
// record.Size bytes per switch. Writes are not transactional; a crash in the
// middle of SaveAll can leave the header and the records disagreeing.
package persist

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"smart-switch/internal/avl"
	"smart-switch/internal/domain"
	"smart-switch/internal/record"
)

const headerAddr = 0

var (
	ErrCorruptHeader = errors.New("stored record count exceeds store capacity")
	ErrStoreFull     = errors.New("no free record slot in store")
	ErrStoreTooSmall = errors.New("store too small for tree capacity")
)

// Store is the byte-addressable non-volatile memory behind the cache.
type Store interface {
	io.ReaderAt
	io.WriterAt
	Size() int64
}

type Cache struct {
	tree   *avl.Tree
	store  Store
	logger *slog.Logger
}

func New(tree *avl.Tree, store Store, logger *slog.Logger) (*Cache, error) {
	need := record.Offset(tree.Cap())
	if store.Size() < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrStoreTooSmall, need, store.Size())
	}
	return &Cache{tree: tree, store: store, logger: logger}, nil
}

func (c *Cache) Tree() *avl.Tree { return c.tree }

// Insert adds a fresh switch for id. With save set, a newly created switch is
// written to the store on its own.
func (c *Cache) Insert(id uint8, save bool) error {
	return c.InsertSwitch(domain.NewSwitch(id), save)
}

// InsertSwitch is Insert with caller supplied fields, used for replay.
func (c *Cache) InsertSwitch(sw domain.Switch, save bool) error {
	created, err := c.tree.Insert(sw)
	if err != nil {
		return err
	}
	if created && save {
		return c.SaveOne(sw)
	}
	return nil
}

// SaveAll rewrites every record in pre-order and then the header.
func (c *Cache) SaveAll() error {
	slot := 0
	for sw := range c.tree.PreOrder() {
		if err := c.writeRecord(slot, sw); err != nil {
			return err
		}
		slot++
	}
	if err := c.writeHeader(slot); err != nil {
		return err
	}
	c.logger.Debug("saved all switches", "count", slot)
	return nil
}

// SaveOne overwrites the stored record carrying sw.ID, or appends one behind
// the last stored record and updates the header.
func (c *Cache) SaveOne(sw domain.Switch) error {
	count, err := c.readHeader()
	if err != nil {
		return err
	}
	for slot := 0; slot < count; slot++ {
		id, err := c.readByte(record.Offset(slot))
		if err != nil {
			return err
		}
		if id == sw.ID {
			c.logger.Debug("updating stored switch", "id", sw.ID, "slot", slot)
			return c.writeRecord(slot, sw)
		}
	}

	if count >= record.Slots(c.store.Size()) {
		return fmt.Errorf("appending switch %d: %w", sw.ID, ErrStoreFull)
	}
	c.logger.Debug("appending stored switch", "id", sw.ID, "slot", count)
	if err := c.writeRecord(count, sw); err != nil {
		return err
	}
	if c.tree.Len() != count+1 {
		c.logger.Warn("stored record count and tree size diverge",
			"stored", count+1,
			"tree", c.tree.Len(),
		)
	}
	return c.writeHeader(c.tree.Len())
}

// LoadAll replaces the tree contents with the stored records without writing
// anything back.
func (c *Cache) LoadAll() error {
	recs, err := c.Records()
	if err != nil {
		return err
	}
	c.tree.Clear()
	for i, r := range recs {
		if err := c.InsertSwitch(record.Decode(r), false); err != nil {
			return fmt.Errorf("replaying record %d: %w", i, err)
		}
	}
	c.logger.Info("loaded switches from store", "records", len(recs), "switches", c.tree.Len())
	return nil
}

// Records returns the stored records in store order.
func (c *Cache) Records() ([]record.Record, error) {
	count, err := c.readHeader()
	if err != nil {
		return nil, err
	}
	if count > c.tree.Cap() {
		return nil, fmt.Errorf("%w: header %d, tree capacity %d", ErrCorruptHeader, count, c.tree.Cap())
	}
	recs := make([]record.Record, count)
	for i := range recs {
		if _, err := c.store.ReadAt(recs[i][:], record.Offset(i)); err != nil {
			return nil, fmt.Errorf("reading record %d: %w", i, err)
		}
	}
	return recs, nil
}

func (c *Cache) readHeader() (int, error) {
	b, err := c.readByte(headerAddr)
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}
	count := int(b)
	if slots := record.Slots(c.store.Size()); count > slots {
		return 0, fmt.Errorf("%w: header %d, %d slots", ErrCorruptHeader, count, slots)
	}
	return count, nil
}

func (c *Cache) writeHeader(count int) error {
	if _, err := c.store.WriteAt([]byte{byte(count)}, headerAddr); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

func (c *Cache) writeRecord(slot int, sw domain.Switch) error {
	r := record.Encode(sw)
	if _, err := c.store.WriteAt(r[:], record.Offset(slot)); err != nil {
		return fmt.Errorf("writing switch %d: %w", sw.ID, err)
	}
	return nil
}

func (c *Cache) readByte(addr int64) (byte, error) {
	var b [1]byte
	if _, err := c.store.ReadAt(b[:], addr); err != nil {
		return 0, err
	}
	return b[0], nil
}
