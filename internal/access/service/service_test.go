package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"addongate/internal/access/metrics"
	"addongate/internal/access/models"
	"addongate/internal/access/store/grant"
	"addongate/internal/access/store/ledger"
	"addongate/internal/access/verifier"
	"addongate/internal/access/verifier/mocks"
	dErrors "addongate/pkg/domain-errors"
	"addongate/pkg/requestcontext"
)

// Shared across the package: promauto registers against the default registry
// and a second New would panic.
var testMetrics = metrics.New()

var testLogger = slog.New(slog.DiscardHandler)

type fixture struct {
	grants   *grant.InMemoryStore
	requests *ledger.InMemoryStore
	verifier *mocks.MockVerifier
	engine   *Engine
	admin    *Admin
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		grants:   grant.NewInMemory(),
		requests: ledger.NewInMemory(),
		verifier: mocks.NewMockVerifier(ctrl),
	}
	f.engine = NewEngine(f.grants, f.requests, f.verifier, nil, testMetrics, testLogger)
	f.admin = NewAdmin(f.grants, f.requests, nil, testMetrics, testLogger)
	return f
}

func verified(identity string) verifier.Result {
	return verifier.Result{Verified: true, Identity: identity, UserID: "user-" + identity}
}

func TestDecideEmptyToken(t *testing.T) {
	f := newFixture(t)

	d, err := f.engine.Decide(context.Background(), DecideInput{})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, d.Outcome)
	assert.Equal(t, models.ReasonNoToken, d.Reason)
	assert.False(t, d.Authorized())
}

func TestDecideIdentityUnresolved(t *testing.T) {
	f := newFixture(t)
	f.verifier.EXPECT().Verify(gomock.Any(), "opaque").Return(verifier.Result{})

	d, err := f.engine.Decide(context.Background(), DecideInput{RawToken: "opaque"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDenied, d.Outcome)
	assert.Equal(t, models.ReasonIdentityUnresolved, d.Reason)

	// A denial leaves no trace in the queue.
	requests, err := f.requests.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestDecideWhitelisted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.grants.AddWhitelist(context.Background(), models.WhitelistEntry{Identity: "a@x.com"}))
	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com"))

	d, err := f.engine.Decide(context.Background(), DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAuthorized, d.Outcome)
	assert.Equal(t, "a@x.com", d.Identity)
	assert.True(t, d.Authorized())
	assert.False(t, d.Temporary())
}

func TestDecideNormalizesIdentity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.grants.AddWhitelist(context.Background(), models.WhitelistEntry{Identity: "a@x.com"}))
	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("  A@X.COM  "))

	d, err := f.engine.Decide(context.Background(), DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAuthorized, d.Outcome)
	assert.Equal(t, "a@x.com", d.Identity)
}

func TestDecideTemporalGrant(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	g, err := models.NewTemporalGrant("a@x.com", 24, "admin", base)
	require.NoError(t, err)
	require.NoError(t, f.grants.AddGrant(context.Background(), g))

	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com")).Times(2)

	ctx := requestcontext.WithTime(context.Background(), base.Add(time.Hour))
	d, err := f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAuthorizedTemporary, d.Outcome)
	assert.True(t, d.Temporary())

	// Past expiry the same identity falls through to the request queue.
	ctx = requestcontext.WithTime(context.Background(), base.Add(24*time.Hour))
	d, err = f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePendingCreated, d.Outcome)
	assert.NotEmpty(t, d.RequestID)
}

func TestDecideWhitelistTakesPrecedenceOverQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com")).Times(2)

	d, err := f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	require.Equal(t, models.OutcomePendingCreated, d.Outcome)

	// Whitelisting afterwards wins over the still-open request.
	require.NoError(t, f.grants.AddWhitelist(ctx, models.WhitelistEntry{Identity: "a@x.com"}))
	d, err = f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAuthorized, d.Outcome)
}

func TestDecideRepeatReturnsExistingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com")).Times(2)

	first, err := f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	require.Equal(t, models.OutcomePendingCreated, first.Outcome)

	second, err := f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePendingExisting, second.Outcome)
	assert.Equal(t, first.RequestID, second.RequestID)
	assert.Equal(t, models.ReasonPendingExisting, second.Reason)
}

func TestDecideConcurrentSameIdentityCreatesOneRequest(t *testing.T) {
	f := newFixture(t)
	const callers = 12
	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com")).Times(callers)

	decisions := make([]models.Decision, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i], errs[i] = f.engine.Decide(context.Background(), DecideInput{RawToken: "tok"})
		}(i)
	}
	wg.Wait()

	created := 0
	var requestID string
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		switch decisions[i].Outcome {
		case models.OutcomePendingCreated:
			created++
			requestID = decisions[i].RequestID
		case models.OutcomePendingExisting:
		default:
			t.Fatalf("unexpected outcome %s", decisions[i].Outcome)
		}
	}
	assert.Equal(t, 1, created)
	for i := 0; i < callers; i++ {
		assert.Equal(t, requestID, decisions[i].RequestID, "all callers see the same request")
	}
}

func TestDecideFallbackIdentity(t *testing.T) {
	f := newFixture(t)
	f.verifier.EXPECT().Verify(gomock.Any(), "opaque").Return(verifier.Result{})

	d, err := f.engine.Decide(context.Background(), DecideInput{
		RawToken:         "opaque",
		AssertedIdentity: "Asserted@X.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePendingCreated, d.Outcome)
	assert.Equal(t, "asserted@x.com", d.Identity)
	assert.False(t, d.Verified)

	req, err := f.requests.FindByID(context.Background(), d.RequestID)
	require.NoError(t, err)
	assert.False(t, req.Verified)
	assert.Equal(t, "fallback_", req.VerifiedUserID[:len("fallback_")])
}

func TestDecideRecordsClientMetadata(t *testing.T) {
	f := newFixture(t)
	f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com"))

	ctx := requestcontext.WithClientMetadata(context.Background(), "203.0.113.7", "Stremio/4.4 (desktop)")
	d, err := f.engine.Decide(ctx, DecideInput{RawToken: "tok"})
	require.NoError(t, err)

	req, err := f.requests.FindByID(context.Background(), d.RequestID)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", req.SourceAddress)
	assert.Equal(t, "Stremio/4.4 (desktop)", req.UserAgent)
	assert.Equal(t, "Stremio Desktop", req.ClientName)
	assert.Equal(t, "tok", req.AssertedToken)
}

func TestAuthorizeConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("empty token is unauthorized", func(t *testing.T) {
		_, err := f.engine.AuthorizeConfig(ctx, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("unresolvable token is unauthorized", func(t *testing.T) {
		f.verifier.EXPECT().Verify(gomock.Any(), "junk").Return(verifier.Result{})
		_, err := f.engine.AuthorizeConfig(ctx, "junk")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("resolved but unapproved is forbidden", func(t *testing.T) {
		f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("nobody@x.com"))
		_, err := f.engine.AuthorizeConfig(ctx, "tok")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("whitelisted is allowed", func(t *testing.T) {
		require.NoError(t, f.grants.AddWhitelist(ctx, models.WhitelistEntry{Identity: "a@x.com"}))
		f.verifier.EXPECT().Verify(gomock.Any(), "tok").Return(verified("a@x.com"))
		identity, err := f.engine.AuthorizeConfig(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", identity)
	})

	t.Run("active grant is allowed", func(t *testing.T) {
		g, err := models.NewTemporalGrant("temp@x.com", 24, "admin", time.Now())
		require.NoError(t, err)
		require.NoError(t, f.grants.AddGrant(ctx, g))
		f.verifier.EXPECT().Verify(gomock.Any(), "tok2").Return(verified("temp@x.com"))
		identity, err := f.engine.AuthorizeConfig(ctx, "tok2")
		require.NoError(t, err)
		assert.Equal(t, "temp@x.com", identity)
	})
}

func TestClientName(t *testing.T) {
	assert.Equal(t, "", clientName(""))
	assert.Equal(t, "Stremio Desktop", clientName("Stremio/4.4.168 (desktop)"))

	chrome := clientName("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, chrome, "Chrome")
}
