package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"spinwin-backend/internal/config"
	"spinwin-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis instance. User records, spin results
// and withdrawal requests are JSON documents; per-user histories are sorted
// sets scored by request time.
type RedisStore struct {
	client *redis.Client
	events *Emitter
}

func NewRedisStore(cfg *config.Config, events *Emitter) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisStore{
		client: client,
		events: events,
	}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) GetUser(ctx context.Context, userID string) (*models.User, error) {
	key := fmt.Sprintf(KeyUser, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, s.wrapStoreErr(err, key, "get", nil)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}

	return &user, nil
}

func (s *RedisStore) CreateUser(ctx context.Context, user *models.User) error {
	key := fmt.Sprintf(KeyUser, user.ID)

	now := time.Now()
	user.CreatedAt = now.Unix()
	user.UpdatedAt = now.Unix()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %v", err)
	}

	created, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return s.wrapStoreErr(err, key, "create", user)
	}
	if !created {
		return ErrUserExists
	}

	return nil
}

// UpdateUser runs fn inside a WATCH/MULTI/EXEC optimistic transaction. A
// concurrent write to the same record fails the EXEC and the whole
// read-modify-write is retried, so callers only ever observe fully applied or
// fully absent mutations.
func (s *RedisStore) UpdateUser(ctx context.Context, userID string, fn func(tx *UserTx) error) (*models.User, error) {
	key := fmt.Sprintf(KeyUser, userID)

	var updated *models.User

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		var user models.User
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			return fmt.Errorf("failed to unmarshal user: %v", err)
		}

		unit := &UserTx{User: &user}
		if err := fn(unit); err != nil {
			return err
		}

		now := time.Now()
		user.UpdatedAt = now.Unix()

		payload, err := json.Marshal(&user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %v", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)

			for _, spin := range unit.Spins {
				spin.SpinTime = now
				s.pipeSpin(ctx, pipe, spin)
			}
			for _, wd := range unit.Withdrawals {
				wd.RequestTime = now
				s.pipeWithdrawal(ctx, pipe, wd)
			}

			return nil
		})
		if err != nil {
			return err
		}

		updated = &user
		return nil
	}

	for i := 0; i < MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrUserNotFound) || SoftRejection(err) {
			return nil, err
		}
		return nil, s.wrapStoreErr(err, key, "update", nil)
	}

	return nil, fmt.Errorf("user update aborted after %d conflicts", MaxTxRetries)
}

// UpdateUserPair watches both records and commits both writes in one EXEC.
func (s *RedisStore) UpdateUserPair(ctx context.Context, userID, otherID string, fn func(user, other *models.User) error) error {
	userKey := fmt.Sprintf(KeyUser, userID)
	otherKey := fmt.Sprintf(KeyUser, otherID)

	txf := func(tx *redis.Tx) error {
		user, err := getWatchedUser(ctx, tx, userKey)
		if err != nil {
			return err
		}
		other, err := getWatchedUser(ctx, tx, otherKey)
		if err != nil {
			return err
		}

		if err := fn(user, other); err != nil {
			return err
		}

		now := time.Now().Unix()
		user.UpdatedAt = now
		other.UpdatedAt = now

		userPayload, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %v", err)
		}
		otherPayload, err := json.Marshal(other)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %v", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey, userPayload, 0)
			pipe.Set(ctx, otherKey, otherPayload, 0)
			return nil
		})
		return err
	}

	for i := 0; i < MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, userKey, otherKey)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, ErrUserNotFound) || SoftRejection(err) {
			return err
		}
		return s.wrapStoreErr(err, userKey, "update", nil)
	}

	return fmt.Errorf("user pair update aborted after %d conflicts", MaxTxRetries)
}

func getWatchedUser(ctx context.Context, tx *redis.Tx, key string) (*models.User, error) {
	data, err := tx.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return &user, nil
}

func (s *RedisStore) pipeSpin(ctx context.Context, pipe redis.Pipeliner, spin *models.SpinResult) {
	data, err := json.Marshal(spin)
	if err != nil {
		return
	}

	spinKey := fmt.Sprintf(KeySpinResult, spin.ID)
	historyKey := fmt.Sprintf(KeyUserSpins, spin.UserID)

	pipe.Set(ctx, spinKey, data, 0)
	pipe.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(spin.SpinTime.UnixNano()),
		Member: spin.ID,
	})
	pipe.ZRemRangeByRank(ctx, historyKey, 0, int64(-MaxSpinHistory-1))
}

func (s *RedisStore) pipeWithdrawal(ctx context.Context, pipe redis.Pipeliner, wd *models.WithdrawalRequest) {
	data, err := json.Marshal(wd)
	if err != nil {
		return
	}

	wdKey := fmt.Sprintf(KeyWithdrawal, wd.ID)
	historyKey := fmt.Sprintf(KeyUserWithdrawals, wd.UserID)

	pipe.Set(ctx, wdKey, data, 0)
	pipe.ZAdd(ctx, historyKey, redis.Z{
		Score:  float64(wd.RequestTime.UnixNano()),
		Member: wd.ID,
	})
	pipe.ZRemRangeByRank(ctx, historyKey, 0, int64(-MaxWithdrawalHistory-1))
}

// RegisterReferralCode creates the code->owner registry entry. SetNX keeps the
// entry create-only, so a concurrent claim of the same code loses cleanly.
func (s *RedisStore) RegisterReferralCode(ctx context.Context, code, userID string) error {
	key := fmt.Sprintf(KeyReferralCode, strings.ToUpper(code))

	created, err := s.client.SetNX(ctx, key, userID, 0).Result()
	if err != nil {
		return s.wrapStoreErr(err, key, "create", userID)
	}
	if !created {
		return ErrCodeTaken
	}

	return nil
}

func (s *RedisStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	key := fmt.Sprintf(KeyReferralCode, strings.ToUpper(code))

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, s.wrapStoreErr(err, key, "get", nil)
	}

	return n > 0, nil
}

func (s *RedisStore) ReferralCodeOwner(ctx context.Context, code string) (string, error) {
	key := fmt.Sprintf(KeyReferralCode, strings.ToUpper(code))

	owner, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrInvalidCode
	}
	if err != nil {
		return "", s.wrapStoreErr(err, key, "get", nil)
	}

	return owner, nil
}

func (s *RedisStore) SpinHistory(ctx context.Context, userID string, limit int64) ([]*models.SpinResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	historyKey := fmt.Sprintf(KeyUserSpins, userID)

	ids, err := s.client.ZRevRange(ctx, historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, s.wrapStoreErr(err, historyKey, "list", nil)
	}

	var results []*models.SpinResult
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeySpinResult, id)).Result()
		if err != nil {
			continue
		}

		var spin models.SpinResult
		if err := json.Unmarshal([]byte(data), &spin); err != nil {
			continue
		}

		results = append(results, &spin)
	}

	return results, nil
}

func (s *RedisStore) WithdrawalHistory(ctx context.Context, userID string, limit int64) ([]*models.WithdrawalRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	historyKey := fmt.Sprintf(KeyUserWithdrawals, userID)

	ids, err := s.client.ZRevRange(ctx, historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, s.wrapStoreErr(err, historyKey, "list", nil)
	}

	var requests []*models.WithdrawalRequest
	for _, id := range ids {
		data, err := s.client.Get(ctx, fmt.Sprintf(KeyWithdrawal, id)).Result()
		if err != nil {
			continue
		}

		var wd models.WithdrawalRequest
		if err := json.Unmarshal([]byte(data), &wd); err != nil {
			continue
		}

		requests = append(requests, &wd)
	}

	return requests, nil
}

// SaveOAuthState stores a single-use CSRF state token.
func (s *RedisStore) SaveOAuthState(ctx context.Context, state string) error {
	key := fmt.Sprintf(KeyOAuthState, state)
	return s.client.Set(ctx, key, "1", TTLOAuthState).Err()
}

// ConsumeOAuthState validates and deletes a state token in one step.
func (s *RedisStore) ConsumeOAuthState(ctx context.Context, state string) bool {
	key := fmt.Sprintf(KeyOAuthState, state)

	n, err := s.client.Del(ctx, key).Result()
	return err == nil && n > 0
}

func (s *RedisStore) CheckRateLimit(ctx context.Context, userID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %v", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// wrapStoreErr converts Redis ACL denials into structured permission errors,
// publishing them on the emitter. Other failures pass through untouched.
func (s *RedisStore) wrapStoreErr(err error, path, operation string, payload interface{}) error {
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "NOPERM") {
		pe := &PermissionError{
			Path:      path,
			Operation: operation,
			Payload:   payload,
		}
		if s.events != nil {
			s.events.Publish(pe)
		}
		return pe
	}

	return err
}
