package matching

import (
	"context"
	"math"

	"github.com/redis/go-redis/v9"

	"rideway/internal/types"
)

const (
	bookingGeoKey = "matching:bookings"
	driverGeoKey  = "matching:drivers"
)

// RedisStore indexes open bookings and online drivers in two Redis GEO
// sets. Bookings enter on confirmation and leave on assignment or any
// terminal transition; drivers enter when they go online.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) AddBooking(ctx context.Context, id types.ID, pos types.Point) error {
	return s.geoAdd(ctx, bookingGeoKey, id, pos)
}

func (s *RedisStore) RemoveBooking(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, bookingGeoKey, string(id)).Err()
}

func (s *RedisStore) UpdateDriver(ctx context.Context, id types.ID, pos types.Point) error {
	return s.geoAdd(ctx, driverGeoKey, id, pos)
}

func (s *RedisStore) RemoveDriver(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, driverGeoKey, string(id)).Err()
}

func (s *RedisStore) NearbyBookings(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	return s.search(ctx, bookingGeoKey, p, radiusKm, limit)
}

func (s *RedisStore) NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	return s.search(ctx, driverGeoKey, p, radiusKm, limit)
}

func (s *RedisStore) geoAdd(ctx context.Context, key string, id types.ID, pos types.Point) error {
	return s.redis.GeoAdd(ctx, key, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (s *RedisStore) search(ctx context.Context, key string, p types.Point, radiusKm float64, limit int) ([]Candidate, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	results, err := s.redis.GeoSearchLocation(ctx, key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  p.Lng,
			Latitude:   p.Lat,
			Radius:     radiusKm,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = Candidate{
			ID:         types.ID(r.Name),
			Position:   types.Point{Lat: r.Latitude, Lng: r.Longitude},
			DistanceKm: math.Round(r.Dist*10) / 10,
		}
	}
	return out, nil
}
