package checkout

import (
	"github.com/vitwit/checkout/limits"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/metrics"
	"github.com/vitwit/checkout/storage"
	"github.com/vitwit/checkout/track"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/wallet"
)

type Option func(*Session)

func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Session) {
		s.metrics = r
	}
}

// WithTracker sets the analytics sink receiving the named checkout events.
func WithTracker(sink track.Sink) Option {
	return func(s *Session) {
		s.track = sink
	}
}

// WithStore sets the local store for per-charge flags. The caller owns the
// store's lifetime.
func WithStore(store storage.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithWalletProvider wires a wallet for the direct payment flow. Without
// one, wallet payment attempts resolve to the unsupported status.
func WithWalletProvider(p wallet.Provider) Option {
	return func(s *Session) {
		s.walletProvider = p
	}
}

// WithDefaultChainID sets the chain expected for native wallet transfers.
func WithDefaultChainID(id int64) Option {
	return func(s *Session) {
		s.defaultChainID = id
	}
}

// WithWidgetNotifier sets the host channel informed of payment transitions.
func WithWidgetNotifier(n WidgetNotifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithReturnHome sets the collaborator invoked when back-navigation exits
// the checkout flow entirely.
func WithReturnHome(fn func()) Option {
	return func(s *Session) {
		s.returnHome = fn
	}
}

// WithPreselectedNetwork skips the picker in favor of the given network
// when the charge supports it.
func WithPreselectedNetwork(n types.Network) Option {
	return func(s *Session) {
		s.preselected = n
	}
}

// WithExchangeRate sets the local-currency to reference-unit rate used by
// the upper send limit.
func WithExchangeRate(rate limits.ExchangeRate) Option {
	return func(s *Session) {
		s.rate = rate
	}
}
