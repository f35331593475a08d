package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	"github.com/Smart3990/Kiyumart-sub000/internal/domain/policy"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"

	"go.uber.org/zap"
)

type TrackingUsecase struct {
	tx       repo.TransactionManager
	cache    LocationCache
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

func NewTrackingUsecase(tx repo.TransactionManager, cache LocationCache, notifier Notifier, clock Clock, logger *zap.Logger) *TrackingUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingUsecase{
		tx:       tx,
		cache:    cache,
		notifier: notifierOrDefault(notifier),
		clock:    clockOrDefault(clock),
		logger:   logger.Named("tracking"),
	}
}

type RecordLocationInput struct {
	Latitude   float64
	Longitude  float64
	Accuracy   *float64
	Speed      *float64
	Heading    *float64
	RecordedAt *time.Time
}

type LocationOutput struct {
	OrderID    int64     `json:"order_id"`
	RiderID    int64     `json:"rider_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	RecordedAt time.Time `json:"recorded_at"`
}

func toLocationOutput(s model.DeliveryTrackingSample) LocationOutput {
	return LocationOutput{
		OrderID:    s.OrderID,
		RiderID:    s.RiderID,
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Accuracy:   s.Accuracy,
		Speed:      s.Speed,
		Heading:    s.Heading,
		RecordedAt: s.RecordedAt,
	}
}

// 担当ライダーのGPSを追記する（追記のみ）
func (u *TrackingUsecase) RecordLocation(ctx context.Context, actor policy.Actor, orderID int64, in RecordLocationInput) (LocationOutput, error) {
	if actor.UserID <= 0 {
		return LocationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return LocationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return LocationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid coordinates")
	}

	var (
		sample model.DeliveryTrackingSample
		order  model.Order
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !policy.CanActOnOrder(actor, policy.CapReportLocation, o) {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusBadRequest, "order is not in delivery")
		}

		recordedAt := u.clock.Now()
		if in.RecordedAt != nil && !in.RecordedAt.IsZero() {
			recordedAt = *in.RecordedAt
		}

		s := model.DeliveryTrackingSample{
			OrderID:    o.ID,
			RiderID:    actor.UserID,
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			Accuracy:   in.Accuracy,
			Speed:      in.Speed,
			Heading:    in.Heading,
			RecordedAt: recordedAt,
		}
		if err := r.Tracking().Append(ctx, &s); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		sample, order = s, o
		return nil
	})
	if err != nil {
		return LocationOutput{}, err
	}

	//キャッシュは失敗しても記録は成功扱い
	if u.cache != nil {
		if err := u.cache.Offer(ctx, sample); err != nil {
			u.logger.Warn("location cache write failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	u.notifier.Emit(order.BuyerID, EventRiderLocationUpdated, RiderLocationUpdatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Latitude:    sample.Latitude,
		Longitude:   sample.Longitude,
		Timestamp:   sample.RecordedAt,
	})

	return toLocationOutput(sample), nil
}

// 現在地 = RecordedAtが最新のサンプル
func (u *TrackingUsecase) CurrentLocation(ctx context.Context, actor policy.Actor, orderID int64) (LocationOutput, error) {
	if actor.UserID <= 0 {
		return LocationOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return LocationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		latest model.DeliveryTrackingSample
		found  bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !policy.CanViewOrder(actor, o) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if u.cache != nil {
			s, ok, err := u.cache.Latest(ctx, orderID)
			if err != nil {
				u.logger.Warn("location cache read failed", zap.Int64("order_id", orderID), zap.Error(err))
			}
			if ok {
				latest, found = s, true
				return nil
			}
		}

		s, err := r.Tracking().Latest(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "no location yet")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		latest = s
		return nil
	})
	if err != nil {
		return LocationOutput{}, err
	}

	//DBから読んだときはキャッシュを温める
	if !found && u.cache != nil {
		if err := u.cache.Offer(ctx, latest); err != nil {
			u.logger.Warn("location cache write failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}

	return toLocationOutput(latest), nil
}
