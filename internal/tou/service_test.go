package tou

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rates map[string]Rate
	order []string
}

func newMemStore() *memStore {
	return &memStore{rates: map[string]Rate{}}
}

func (m *memStore) CreateRate(_ context.Context, r Rate) (Rate, error) {
	r.ID = fmt.Sprintf("rate-%d", len(m.order)+1)
	m.rates[r.ID] = r
	m.order = append(m.order, r.ID)
	return r, nil
}

func (m *memStore) GetRate(_ context.Context, id string) (Rate, error) {
	r, ok := m.rates[id]
	if !ok {
		return Rate{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) ListRates(_ context.Context, f RateFilter) ([]Rate, error) {
	var out []Rate
	for _, id := range m.order {
		r, ok := m.rates[id]
		if !ok || r.LocationID != f.LocationID || (f.ActiveOnly && !r.IsActive) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) UpdateRate(_ context.Context, r Rate) (Rate, error) {
	if _, ok := m.rates[r.ID]; !ok {
		return Rate{}, ErrNotFound
	}
	m.rates[r.ID] = r
	return r, nil
}

func (m *memStore) DeleteRate(_ context.Context, id string) error {
	if _, ok := m.rates[id]; !ok {
		return ErrNotFound
	}
	delete(m.rates, id)
	return nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(newMemStore())
	require.NoError(t, err)
	return svc
}

func TestCreateRateAdmitsTouchingDayWindows(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := rate(date(2024, 6, 1), date(2024, 6, 30), 0, 43200, 0)
	a.RecursYearly = true
	_, err := svc.CreateRate(ctx, a)
	require.NoError(t, err)

	b := rate(date(2025, 6, 15), date(2025, 6, 15), 43200, 86400, 0)
	_, err = svc.CreateRate(ctx, b)
	require.NoError(t, err)

	c := rate(date(2025, 6, 16), date(2025, 6, 16), 40000, 50000, 0)
	_, err = svc.CreateRate(ctx, c)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateRateWithDisjointWeekdaysNeverConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, rate(date(2024, 1, 1), date(2030, 12, 31), 0, 86400, 0, 1, 2, 3, 4))
	require.NoError(t, err)
	_, err = svc.CreateRate(ctx, rate(date(2020, 1, 1), date(2040, 12, 31), 0, 86400, 5, 6))
	require.NoError(t, err)

	rates, err := svc.ListRates(ctx, "loc", true)
	require.NoError(t, err)
	assert.Len(t, rates, 2)
}

func TestInactiveRatesDoNotConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateRate(ctx, rate(date(2024, 1, 1), date(2024, 12, 31), 0, 86400, 0))
	require.NoError(t, err)

	inactive := rate(date(2024, 1, 1), date(2024, 12, 31), 0, 86400, 0)
	inactive.IsActive = false
	second, err := svc.CreateRate(ctx, inactive)
	require.NoError(t, err)

	on := true
	_, err = svc.UpdateRate(ctx, second.ID, RateUpdate{IsActive: &on})
	require.ErrorIs(t, err, ErrConflict)

	off := false
	_, err = svc.UpdateRate(ctx, first.ID, RateUpdate{IsActive: &off})
	require.NoError(t, err)

	updated, err := svc.UpdateRate(ctx, second.ID, RateUpdate{IsActive: &on})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
}

func TestUpdateActiveRateRechecksChangedWindows(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRate(ctx, rate(date(2024, 1, 1), date(2024, 12, 31), 0, 3600, 0))
	require.NoError(t, err)
	evening, err := svc.CreateRate(ctx, rate(date(2024, 1, 1), date(2024, 12, 31), 64800, 86400, 0))
	require.NoError(t, err)

	price := 0.31
	_, err = svc.UpdateRate(ctx, evening.ID, RateUpdate{PricePerKWh: &price})
	require.NoError(t, err)

	from := 1800
	_, err = svc.UpdateRate(ctx, evening.ID, RateUpdate{DayStartedAtSeconds: &from})
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateRateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]Rate{
		"end before start": rate(date(2024, 2, 1), date(2024, 1, 1), 0, 10, 0),
		"empty window":     rate(date(2024, 1, 1), date(2024, 1, 1), 10, 10, 0),
		"window past day":  rate(date(2024, 1, 1), date(2024, 1, 1), 0, 86401, 0),
		"no days":          rate(date(2024, 1, 1), date(2024, 1, 1), 0, 10),
		"bad day":          rate(date(2024, 1, 1), date(2024, 1, 1), 0, 10, 7),
		"no dates":         rate(Date{}, Date{}, 0, 10, 0),
	}
	for name, r := range cases {
		_, err := svc.CreateRate(ctx, r)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}

	missingName := rate(date(2024, 1, 1), date(2024, 1, 1), 0, 10, 0)
	missingName.Name = " "
	_, err := svc.CreateRate(ctx, missingName)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetAndDeleteRate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateRate(ctx, rate(date(2024, 1, 1), date(2024, 1, 1), 0, 10, 2, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, created.DaysOfWeek)

	got, err := svc.GetRate(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, svc.DeleteRate(ctx, created.ID))
	got, err = svc.GetRate(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.ErrorIs(t, svc.DeleteRate(ctx, created.ID), ErrNotFound)
}
