package announce

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/heraldbot/herald/pkg/clock"
	"github.com/heraldbot/herald/pkg/log"
	"github.com/heraldbot/herald/pkg/metrics"
	"github.com/heraldbot/herald/pkg/types"
)

// DefaultCycleInterval is the announcer's drain cadence. It is
// independent of the engine's tick cadence; the two loops share no
// scheduler.
const DefaultCycleInterval = 60 * time.Second

// ChangeSource is the announcer's view of the engine: the drain call
// and nothing else.
type ChangeSource interface {
	DrainOutbound() []types.Change
}

// messenger is the thin slice of the Discord API the drain cycle
// needs, split out so the cycle logic is testable without a gateway.
type messenger interface {
	send(channelID, content string) (messageID string, err error)
	edit(channelID, messageID, content string) error
}

type discordMessenger struct {
	session *discordgo.Session
}

func (m discordMessenger) send(channelID, content string) (string, error) {
	msg, err := m.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (m discordMessenger) edit(channelID, messageID, content string) error {
	_, err := m.session.ChannelMessageEdit(channelID, messageID, content)
	return err
}

// sentMessage remembers the Discord message posted for an event so a
// later update can edit it in place. expires mirrors the event start;
// after that the message stands as history and is forgotten here.
type sentMessage struct {
	messageID string
	expires   time.Time
}

// Announcer mirrors drained changes into one Discord text channel.
type Announcer struct {
	source    ChangeSource
	session   *discordgo.Session
	msg       messenger
	channelID string
	clock     clock.Clock
	interval  time.Duration
	logger    zerolog.Logger

	sent map[string]sentMessage

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an announcer over a fresh Discord session. The session
// is not opened until Start.
func New(source ChangeSource, token string, channelID int64, clk clock.Clock) (*Announcer, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	if clk == nil {
		clk = clock.UTC{}
	}

	return &Announcer{
		source:    source,
		session:   session,
		msg:       discordMessenger{session: session},
		channelID: strconv.FormatInt(channelID, 10),
		clock:     clk,
		interval:  DefaultCycleInterval,
		logger:    log.WithComponent("announce"),
		sent:      make(map[string]sentMessage),
	}, nil
}

// Start opens the Discord gateway and begins the drain loop. A login
// failure is fatal; per-message failures later are logged and skipped.
func (a *Announcer) Start() error {
	a.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.logger.Info().
			Str("user", r.User.Username).
			Str("user_id", r.User.ID).
			Msg("Logged in to Discord")
		if err := s.UpdateListeningStatus("Putting my nose to the scrapestone"); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to set presence")
		}
	})

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	metrics.UpdateComponent("announce", true, "running")

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go a.run(ctx)

	a.logger.Info().Str("channel_id", a.channelID).Dur("interval", a.interval).Msg("Announcer started")
	return nil
}

// Stop ends the drain loop and closes the gateway session.
func (a *Announcer) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	a.wg.Wait()

	if err := a.session.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close discord session")
	}
	metrics.UpdateComponent("announce", false, "stopped")
	a.logger.Info().Msg("Announcer stopped")
}

func (a *Announcer) run(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cycle()
		case <-ctx.Done():
			return
		}
	}
}

// cycle drains the engine and mirrors each change into the channel,
// then forgets messages for events that have started.
func (a *Announcer) cycle() {
	changes := a.source.DrainOutbound()
	for _, change := range changes {
		a.announce(change)
	}
	a.collectExpired()
}

func (a *Announcer) announce(change types.Change) {
	body := formatAnnouncement(change.Record)
	id := change.Record.ID

	if tracked, ok := a.sent[id]; ok {
		if err := a.msg.edit(a.channelID, tracked.messageID, body); err != nil {
			metrics.AnnouncementFailures.Inc()
			a.logger.Error().Err(err).Str("event_id", id).Msg("Failed to edit announcement")
			return
		}
		a.sent[id] = sentMessage{messageID: tracked.messageID, expires: change.Record.StartAt}
		metrics.AnnouncementsEdited.Inc()
		a.logger.Info().Str("event_id", id).Msg("Edited announcement")
		return
	}

	messageID, err := a.msg.send(a.channelID, body)
	if err != nil {
		metrics.AnnouncementFailures.Inc()
		a.logger.Error().Err(err).Str("event_id", id).Msg("Failed to send announcement")
		return
	}
	a.sent[id] = sentMessage{messageID: messageID, expires: change.Record.StartAt}
	metrics.AnnouncementsSent.Inc()
	a.logger.Info().Str("event_id", id).Str("message_id", messageID).Msg("Sent announcement")
}

// collectExpired forgets tracked messages for events whose start has
// passed. The Discord messages themselves are never deleted.
func (a *Announcer) collectExpired() {
	now := a.clock.Now()
	for id, tracked := range a.sent {
		if clock.Compare(now, tracked.expires) == clock.Future {
			continue
		}
		delete(a.sent, id)
		a.logger.Debug().Str("event_id", id).Msg("Forgot message for started event")
	}
}
