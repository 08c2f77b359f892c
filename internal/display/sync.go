// Package display packages live stage state for the second screen. The
// engine never talks to the screen directly; packets go through a publisher
// port backed by shared persisted state.
package display

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/rankmaster/internal/payout"
	"github.com/lox/rankmaster/internal/stage"
)

// DefaultDebounce is how long mutations are coalesced before publishing.
const DefaultDebounce = time.Second

// Packet is the display surface's data contract.
type Packet struct {
	PlayersRemaining  int            `json:"playersRemaining"`
	TotalPlayers      int            `json:"totalPlayers"`
	TotalPrize        float64        `json:"totalPrize"`
	PrizeDistribution []payout.Entry `json:"prizeDistribution"`
	ITMReached        bool           `json:"itmReached"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// BuildPacket assembles a packet from the live ledger entries and the
// current payout table. ITM is reached once the field has shrunk to the
// number of paid places.
func BuildPacket(entries []stage.Entry, prizes []payout.Entry, pool float64, now time.Time) Packet {
	remaining := 0
	for i := range entries {
		if entries[i].EliminationOrder == 0 {
			remaining++
		}
	}
	return Packet{
		PlayersRemaining:  remaining,
		TotalPlayers:      len(entries),
		TotalPrize:        pool,
		PrizeDistribution: prizes,
		ITMReached:        len(entries) > 0 && remaining <= len(prizes),
		UpdatedAt:         now,
	}
}

// Publisher hands a packet to the outside world. One-way; the engine does
// not retry failures.
type Publisher interface {
	PublishDisplay(ctx context.Context, packet Packet) error
}

// Sync debounces stage mutations into periodic publishes. Any number of
// Notify calls inside the debounce window collapse to a single outbound
// packet.
type Sync struct {
	mu        sync.Mutex
	clock     quartz.Clock
	publisher Publisher
	source    func() Packet
	logger    *log.Logger
	debounce  time.Duration
	timer     *quartz.Timer
	stopped   bool
}

// NewSync creates a debounced publisher. The source callback builds the
// packet at publish time, so the packet always reflects the latest state. A
// nil clock uses real time.
func NewSync(source func() Packet, publisher Publisher, clock quartz.Clock, logger *log.Logger) *Sync {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.New(nil)
	}
	return &Sync{
		clock:     clock,
		publisher: publisher,
		source:    source,
		logger:    logger.WithPrefix("display"),
		debounce:  DefaultDebounce,
	}
}

// Notify schedules a publish. Repeated calls while one is pending are
// absorbed into it.
func (s *Sync) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.timer != nil {
		return
	}
	s.timer = s.clock.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.timer = nil
		stopped := s.stopped
		s.mu.Unlock()
		if !stopped {
			s.publish(context.Background())
		}
	})
}

// Flush publishes immediately, cancelling any pending debounce.
func (s *Sync) Flush(ctx context.Context) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		s.publish(ctx)
	}
}

// Stop cancels any pending publish. The sync cannot be restarted.
func (s *Sync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Sync) publish(ctx context.Context) {
	packet := s.source()
	if err := s.publisher.PublishDisplay(ctx, packet); err != nil {
		s.logger.Warn("failed to publish display packet", "error", err)
	}
}
