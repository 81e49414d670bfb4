package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore хранит ключи идемпотентности в памяти процесса.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*domain.IdempotencyRecord
	now     func() time.Time
}

// NewIdempotencyRepository возвращает пустое хранилище ключей.
func NewIdempotencyRepository() *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*domain.IdempotencyRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет источник времени для проверок TTL.
func (s *IdempotencyStore) SetClock(now func() time.Time) {
	if now == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// CreateProcessing резервирует ключ. Повтор того же запроса возвращает
// ErrIdempotencyKeyAlreadyExists вместе с сохранённой записью. Ключ с истёкшим TTL
// резервируется заново.
func (s *IdempotencyStore) CreateProcessing(_ context.Context, key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}
	requestHash = strings.TrimSpace(requestHash)
	if requestHash == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyRequestHashRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.records[key]; ok && !rec.Expired(now) {
		if rec.RequestHash != requestHash {
			return copyRecord(rec), domain.ErrIdempotencyHashMismatch
		}
		return copyRecord(rec), domain.ErrIdempotencyKeyAlreadyExists
	}

	if ttlAt.IsZero() {
		ttlAt = now.Add(defaultIdempotencyTTL)
	}
	rec := &domain.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		Status:      domain.IdempotencyStatusProcessing,
		TTLAt:       ttlAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.records[key] = rec
	return copyRecord(rec), nil
}

// Get возвращает копию записи. Истёкшие записи считаются отсутствующими.
func (s *IdempotencyStore) Get(_ context.Context, key string) (domain.IdempotencyRecord, error) {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok || rec.Expired(s.now()) {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(rec), nil
}

// MarkDone сохраняет ответ успешного запроса.
func (s *IdempotencyStore) MarkDone(_ context.Context, key string, responseBody []byte) error {
	return s.finish(key, domain.IdempotencyStatusDone, responseBody)
}

// MarkFailed сохраняет ответ неуспешного запроса.
func (s *IdempotencyStore) MarkFailed(_ context.Context, key string, responseBody []byte) error {
	return s.finish(key, domain.IdempotencyStatusFailed, responseBody)
}

// DeleteExpired удаляет до limit записей с TTL не позже before, начиная с самых старых.
func (s *IdempotencyStore) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if before.IsZero() {
		before = s.now()
	}

	var expired []*domain.IdempotencyRecord
	for _, rec := range s.records {
		if rec.Expired(before) {
			expired = append(expired, rec)
		}
	}
	slices.SortFunc(expired, func(a, b *domain.IdempotencyRecord) int { return a.TTLAt.Compare(b.TTLAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	for _, rec := range expired {
		delete(s.records, rec.Key)
	}
	return len(expired), nil
}

func (s *IdempotencyStore) finish(key string, status domain.IdempotencyStatus, body []byte) error {
	key, err := normalizeIdempotencyKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}
	rec.Status = status
	rec.ResponseBody = bytes.Clone(body)
	rec.UpdatedAt = s.now()
	return nil
}

func normalizeIdempotencyKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", domain.ErrIdempotencyKeyRequired
	}
	return key, nil
}

func copyRecord(rec *domain.IdempotencyRecord) domain.IdempotencyRecord {
	out := *rec
	out.ResponseBody = bytes.Clone(rec.ResponseBody)
	return out
}

var _ domain.IdempotencyRepository = (*IdempotencyStore)(nil)
