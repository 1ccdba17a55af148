package conversation

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/chat-fallback-router/models"
	"github.com/upb/chat-fallback-router/services"
)

// entry is a stored conversation with its LRU position
type entry struct {
	conv    *models.Conversation
	element *list.Element
}

// Store is an in-memory, bounded conversation store. Values are copied on
// the way in and out, so callers never share memory with the store.
// Contents are lost on restart.
type Store struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]*entry
	lruList    *list.List // front is most recently used
	maxEntries int
	logger     *zap.Logger
	now        func() time.Time
}

// NewStore creates a Store holding at most maxEntries conversations
func NewStore(maxEntries int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		entries:    make(map[uuid.UUID]*entry),
		lruList:    list.New(),
		maxEntries: maxEntries,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new conversation and returns it
func (s *Store) Create(ctx context.Context, input models.ConversationInput) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("create conversation", err)
	}

	conv := models.NewConversation(input.Title, copyMessages(input.Messages), input.Model)
	conv.Date = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[conv.ID] = &entry{
		conv:    conv,
		element: s.lruList.PushFront(conv.ID),
	}
	s.evictOverflow()

	s.logger.Debug("conversation created", zap.String("conversation_id", conv.ID.String()))
	return conv.Clone(), nil
}

// Get returns a conversation by id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("get conversation", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, notFound(id)
	}
	s.lruList.MoveToFront(e.element)
	return e.conv.Clone(), nil
}

// List returns all conversations, newest first
func (s *Store) List(ctx context.Context) ([]*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("list conversations", err)
	}

	s.mu.RLock()
	convs := make([]*models.Conversation, 0, len(s.entries))
	for _, e := range s.entries {
		convs = append(convs, e.conv.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].Date.Equal(convs[j].Date) {
			return convs[i].ID.String() < convs[j].ID.String()
		}
		return convs[i].Date.After(convs[j].Date)
	})
	return convs, nil
}

// Update replaces a conversation's title, messages and model. A blank
// title is re-derived from the messages.
func (s *Store) Update(ctx context.Context, id uuid.UUID, input models.ConversationInput) (*models.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.WrapInternal("update conversation", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, notFound(id)
	}

	title := input.Title
	if title == "" {
		title = models.DeriveTitle(input.Messages)
	}
	e.conv.Title = title
	e.conv.Messages = copyMessages(input.Messages)
	e.conv.Model = input.Model
	e.conv.Date = s.now()
	s.lruList.MoveToFront(e.element)

	return e.conv.Clone(), nil
}

// Delete removes a conversation
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return services.WrapInternal("delete conversation", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return notFound(id)
	}
	s.lruList.Remove(e.element)
	delete(s.entries, id)
	return nil
}

// Len returns the number of stored conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// evictOverflow drops least recently used entries. Caller holds the lock.
func (s *Store) evictOverflow() {
	for s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		oldest := s.lruList.Back()
		if oldest == nil {
			return
		}
		id := oldest.Value.(uuid.UUID)
		s.lruList.Remove(oldest)
		delete(s.entries, id)
		s.logger.Debug("conversation evicted", zap.String("conversation_id", id.String()))
	}
}

func notFound(id uuid.UUID) error {
	return services.NewDomainError(services.ErrorTypeNotFound, services.ErrConversationNotFound.Message, nil).
		WithDetail("conversation_id", id.String())
}

func copyMessages(messages []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(messages))
	copy(out, messages)
	return out
}
