package service

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/models"
	"alpha_bot/internal/modules/alerts/service/memory"
	lockService "alpha_bot/internal/modules/lock/service"
	"alpha_bot/pkg/logger"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

type QuoteSourceMock struct {
	mock.Mock
}

func (m *QuoteSourceMock) Candle(ctx context.Context, ticker models.Ticker, platform string) (models.Quote, error) {
	args := m.Called(ctx, ticker, platform)
	return args.Get(0).(models.Quote), args.Error(1)
}

func newTestService(quotes QuoteSource) (*Service, *memory.Alerts) {
	repo := memory.NewAlerts()
	svc := New(newTestEngine(DefaultLimits()), repo, quotes, lockService.NewLocal(), instrumentation.NewNop())
	return svc, repo
}

func TestServiceCreatePersistsAcceptedBatch(t *testing.T) {
	quotes := new(QuoteSourceMock)
	quotes.On("Candle", mock.Anything, btc, "telegram").Return(quoteAt(100), nil)
	svc, repo := newTestService(quotes)
	user := models.User{UserID: "1"}

	d, err := svc.Create(context.Background(), Request{User: user, Ticker: btc, Levels: []float64{90, 110}, Platform: "telegram"})
	require.NoError(t, err)
	require.Nil(t, d.Rejection)
	assert.Len(t, d.Alerts, 2)

	stored, err := repo.ListByOwners(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// повтор того же уровня отклоняется и ничего не пишет
	d, err = svc.Create(context.Background(), Request{User: user, Ticker: btc, Levels: []float64{120, 110.05}, Platform: "telegram"})
	require.NoError(t, err)
	require.NotNil(t, d.Rejection)
	assert.Equal(t, models.RejectNearDuplicate, d.Rejection.Kind)

	stored, err = repo.ListByOwners(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	quotes.AssertExpectations(t)
}

func TestServiceCreateSeesLinkedAccountAlerts(t *testing.T) {
	quotes := new(QuoteSourceMock)
	quotes.On("Candle", mock.Anything, btc, "").Return(quoteAt(100), nil)
	svc, repo := newTestService(quotes)

	require.NoError(t, repo.Insert(context.Background(), existingAt("acc", 100)))

	linked := models.User{UserID: "1", AccountID: "acc"}
	d, err := svc.Create(context.Background(), Request{User: linked, Ticker: btc, Levels: []float64{100}})
	require.NoError(t, err)
	require.NotNil(t, d.Rejection)
	assert.Equal(t, models.RejectDuplicate, d.Rejection.Kind)

	list, err := svc.List(context.Background(), linked)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServiceCreateCountCheckSkipsQuote(t *testing.T) {
	quotes := new(QuoteSourceMock)
	svc, _ := newTestService(quotes)

	d, err := svc.Create(context.Background(), Request{User: models.User{UserID: "1"}, Ticker: btc})
	require.NoError(t, err)
	require.NotNil(t, d.Rejection)
	assert.Equal(t, models.RejectCapacity, d.Rejection.Kind)
	quotes.AssertNotCalled(t, "Candle", mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceCreateQuoteFailure(t *testing.T) {
	quotes := new(QuoteSourceMock)
	quotes.On("Candle", mock.Anything, btc, "").Return(models.Quote{}, errors.New("processor down"))
	svc, _ := newTestService(quotes)

	_, err := svc.Create(context.Background(), Request{User: models.User{UserID: "1"}, Ticker: btc, Levels: []float64{100}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processor down")
}

func TestServiceDelete(t *testing.T) {
	svc, repo := newTestService(new(QuoteSourceMock))
	alerts := existingAt("1", 100)
	alerts[0].ID = "a1"
	require.NoError(t, repo.Insert(context.Background(), alerts))

	stranger := models.User{UserID: "2"}
	rej, err := svc.Delete(context.Background(), stranger, "a1")
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, models.RejectNotFound, rej.Kind)

	rej, err = svc.Delete(context.Background(), models.User{UserID: "1"}, "a1")
	require.NoError(t, err)
	assert.Nil(t, rej)

	left, err := repo.ListByOwners(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Empty(t, left)
}
