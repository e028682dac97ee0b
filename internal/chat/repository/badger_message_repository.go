package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"marketplace_chat_service/internal/chat/domain"
	errprocess "marketplace_chat_service/pkg/err"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const (
	badgerMessagePrefix = "msg/"
	badgerRoomPrefix    = "room/"
	// badgerConflictRetries SetState retries when a concurrent txn touched the same key
	badgerConflictRetries = 32
)

type badgerMessageRepository struct {
	db *badger.DB
}

// NewBadgerMessageRepository create a MessageRepository on an embedded badger db
//
// Keys:
//
//	msg/{id}                          -> message JSON
//	room/{room_id}/{unix_nano_19}/{id} -> id
//
// "/" is not a valid room id character, so a room prefix never matches another room.
// The 19 digit zero padded timestamp keeps a room prefix scan in chronological order.
func NewBadgerMessageRepository(db *badger.DB) MessageRepository {
	return &badgerMessageRepository{db: db}
}

func messageKey(id string) []byte {
	return []byte(badgerMessagePrefix + id)
}

func roomPrefix(roomID string) []byte {
	return []byte(badgerRoomPrefix + roomID + "/")
}

func roomIndexKey(m *domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%s/%019d/%s", badgerRoomPrefix, m.RoomID, m.CreatedAt.UnixNano(), m.ID))
}

func (r *badgerMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(m.ID), value); err != nil {
			return err
		}
		return txn.Set(roomIndexKey(m), []byte(m.ID))
	})
}

func (r *badgerMessageRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	return r.scanRoom(ctx, roomID, func(domain.Message) bool { return true })
}

func (r *badgerMessageRepository) ListUnread(ctx context.Context, roomID, receiverID string) ([]domain.Message, error) {
	return r.scanRoom(ctx, roomID, func(m domain.Message) bool {
		return m.IsReceiver(receiverID) && m.State < domain.StateSeen
	})
}

func (r *badgerMessageRepository) scanRoom(ctx context.Context, roomID string, keep func(domain.Message) bool) ([]domain.Message, error) {
	messages := []domain.Message{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			m, err := getMessage(txn, string(id))
			if err != nil {
				return err
			}
			if keep(*m) {
				messages = append(messages, *m)
			}
		}
		return nil
	})
	return messages, err
}

func (r *badgerMessageRepository) FindByID(_ context.Context, id string) (*domain.Message, error) {
	var m *domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = getMessage(txn, id)
		return err
	})
	return m, err
}

// SetState read and write in one txn, badger aborts it with ErrConflict when another txn wrote the key first
func (r *badgerMessageRepository) SetState(ctx context.Context, id string, state domain.DeliveryState) (bool, error) {
	var changed bool
	var err error
	for attempt := 0; attempt < badgerConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return false, err
		}
		changed = false
		err = r.db.Update(func(txn *badger.Txn) error {
			m, err := getMessage(txn, id)
			if errors.Is(err, errprocess.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if m.State >= state {
				return nil
			}
			m.State = state
			value, err := json.Marshal(m)
			if err != nil {
				return err
			}
			changed = true
			return txn.Set(messageKey(id), value)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *badgerMessageRepository) CountUnreadByRoom(ctx context.Context, receiverID string) ([]domain.RoomUnread, error) {
	type roomSender struct{ room, sender string }
	counts := map[roomSender]int{}

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerMessagePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var m domain.Message
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
				return err
			}
			if m.IsReceiver(receiverID) && m.State < domain.StateSeen {
				counts[roomSender{m.RoomID, m.SenderID}]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := lo.MapToSlice(counts, func(k roomSender, n int) domain.RoomUnread {
		return domain.RoomUnread{RoomID: k.room, SenderID: k.sender, UnreadCount: n}
	})
	sort.Slice(results, func(i, j int) bool {
		if results[i].RoomID != results[j].RoomID {
			return results[i].RoomID < results[j].RoomID
		}
		return results[i].SenderID < results[j].SenderID
	})
	return results, nil
}

func getMessage(txn *badger.Txn, id string) (*domain.Message, error) {
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("message %s: %w", id, errprocess.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var m domain.Message
	if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &m) }); err != nil {
		return nil, err
	}
	return &m, nil
}
