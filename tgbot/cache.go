package telebot

import (
	"sync"
	"time"

	"github.com/wlcommunity/wlbot/api"
)

// maxStoredMessages caps per-chat history so busy group chats do not
// grow the request payload without bound.
const maxStoredMessages = 20

type ChatCache struct {
	mu sync.Mutex
	m  map[int64]*StoredChat
}

func NewCache() *ChatCache {
	return &ChatCache{m: map[int64]*StoredChat{}}
}

// Get returns the chat's history, registering it when new. Every caller of
// the same id shares one StoredChat, the chat carries its own lock because
// telebot runs handlers in separate goroutines.
func (cc *ChatCache) Get(ID int64) *StoredChat {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	sc, ok := cc.m[ID]
	if !ok {
		sc = &StoredChat{
			id:      ID,
			updated: time.Now(),
		}
		cc.m[ID] = sc
	}
	return sc
}

func (cc *ChatCache) Clear(id int64) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	delete(cc.m, id)
	return nil
}

func (cc *ChatCache) CountMessages(id int64) int {
	return cc.Get(id).Len()
}

type StoredChat struct {
	mu       sync.Mutex
	id       int64
	messages []*api.Message
	updated  time.Time
}

func (sc *StoredChat) Add(msg api.Message) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.messages = append(sc.messages, &msg)
	if len(sc.messages) > maxStoredMessages {
		sc.messages = sc.messages[len(sc.messages)-maxStoredMessages:]
	}
	sc.updated = time.Now()
}

// Messages returns a snapshot of the stored history, it is safe to modify.
func (sc *StoredChat) Messages() []*api.Message {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	out := make([]*api.Message, len(sc.messages))
	copy(out, sc.messages)
	return out
}

func (sc *StoredChat) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.messages)
}
