package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"hotspot-portal/internal/domain/model"
	"hotspot-portal/internal/domain/ports/repository"
)

var _ repository.PaymentWatchStore = (*PaymentWatchStore)(nil)

// PaymentWatchStore keeps the progress of tracked payment requests so any
// portal instance can render /pay/{id}.
type PaymentWatchStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewPaymentWatchStore(client RedisClient, ttl time.Duration) *PaymentWatchStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PaymentWatchStore{client: client, ttl: ttl}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func (s *PaymentWatchStore) key(requestID int64) string {
	return "payment_watch:" + itoa(requestID)
}

func (s *PaymentWatchStore) Save(ctx context.Context, w *model.PaymentWatch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(w.RequestID), data, s.ttl)
}

func (s *PaymentWatchStore) Get(ctx context.Context, requestID int64) (*model.PaymentWatch, error) {
	data, err := s.client.Get(ctx, s.key(requestID))
	if err != nil {
		return nil, err
	}

	var w model.PaymentWatch
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *PaymentWatchStore) Delete(ctx context.Context, requestID int64) error {
	return s.client.Del(ctx, s.key(requestID))
}
