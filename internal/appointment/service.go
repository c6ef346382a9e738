package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/buergeramt-termine/termine/internal/config"
	redisclient "github.com/buergeramt-termine/termine/internal/redis"
	"github.com/buergeramt-termine/termine/internal/source"
	"github.com/buergeramt-termine/termine/internal/telegram"
)

const refreshLockKey = "refresh"

const (
	msgExpired       = "Die Benachrichtigungen wurden automatisch deaktiviert. Benutze /deadline um sie wieder zu aktivieren."
	msgSubscribed    = "Du bekommst jetzt eine Benachrichtigung über alle Termine vor dem %s."
	msgDeadlineMoved = "Deine Deadline wurde aktualisiert: %s."
)

var (
	ErrRefreshInProgress = errors.New("another refresh is in progress")
)

// SnapshotSource supplies the full set of currently offered slots.
type SnapshotSource interface {
	Fetch(ctx context.Context) ([]source.Observation, error)
}

type Service struct {
	repo   Repository
	source SnapshotSource
	sender telegram.Sender
	locker redisclient.Locker
	cfg    config.Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, src SnapshotSource, sender telegram.Sender, locker redisclient.Locker, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		source: src,
		sender: sender,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// CycleReport summarises one refresh.
type CycleReport struct {
	Observed int
	Added    int
	Removed  int
	Notified int
	Failed   int
}

// Refresh downloads the current snapshot, notifies every subscriber whose
// deadline window changed and stores the new snapshot. Only one refresh runs
// at a time across all instances sharing the locker. A failed download leaves
// the store untouched.
func (s *Service) Refresh(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	err := s.locker.WithLock(ctx, refreshLockKey, func(lockCtx context.Context) error {
		var err error
		report, err = s.refresh(lockCtx)
		return err
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return report, ErrRefreshInProgress
		}
		return report, err
	}
	return report, nil
}

func (s *Service) refresh(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	observations, err := s.source.Fetch(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch snapshot: %w", err)
	}
	report.Observed = len(observations)

	current, err := s.resolveLocations(ctx, observations)
	if err != nil {
		return report, err
	}

	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return report, fmt.Errorf("load stored snapshot: %w", err)
	}

	if SameSet(stored, current) {
		s.logger.Debug("snapshot unchanged", "appointments", len(current))
		return report, nil
	}

	names, err := s.locationNames(ctx)
	if err != nil {
		return report, err
	}
	subscribers, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return report, fmt.Errorf("load subscribers: %w", err)
	}

	messages := RunCycle(stored, current, subscribers, names)
	added, removed := Diff(stored, current)
	report.Added, report.Removed = len(added), len(removed)

	if err := s.repo.ApplyDiff(ctx, added, removed); err != nil {
		return report, fmt.Errorf("apply diff: %w", err)
	}

	addresses := make([]string, 0, len(messages))
	for addr := range messages {
		addresses = append(addresses, addr)
	}
	slices.Sort(addresses)

	for _, addr := range addresses {
		if err := s.sender.Send(ctx, addr, messages[addr]); err != nil {
			s.logger.Warn("failed to deliver change notification", "address", addr, "error", err)
			report.Failed++
			continue
		}
		report.Notified++
	}

	s.logger.Info("snapshot refreshed",
		"observed", report.Observed,
		"added", report.Added,
		"removed", report.Removed,
		"notified", report.Notified,
		"failed", report.Failed)
	return report, nil
}

// resolveLocations maps observed location names to ids, creating locations
// seen for the first time.
func (s *Service) resolveLocations(ctx context.Context, observations []source.Observation) ([]Appointment, error) {
	locs, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	ids := make(map[string]int64, len(locs))
	for _, l := range locs {
		ids[l.Name] = l.ID
	}

	snapshot := make([]Appointment, 0, len(observations))
	for _, o := range observations {
		id, ok := ids[o.Location]
		if !ok {
			l, err := s.repo.EnsureLocation(ctx, o.Location)
			if err != nil {
				return nil, err
			}
			s.logger.Info("new location", "id", l.ID, "name", l.Name)
			id = l.ID
			ids[o.Location] = id
		}
		snapshot = append(snapshot, New(o.When, id))
	}
	return Dedupe(snapshot), nil
}

// Notify runs a refresh when anybody is subscribed.
func (s *Service) Notify(ctx context.Context) (CycleReport, error) {
	subscribers, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("load subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		s.logger.Debug("no subscribers, skipping notification run")
		return CycleReport{}, nil
	}
	return s.Refresh(ctx)
}

// RefreshIfIdle keeps the stored snapshot current while nobody is subscribed,
// so the first deadline request is answered from recent data.
func (s *Service) RefreshIfIdle(ctx context.Context) (CycleReport, error) {
	subscribers, err := s.repo.ListSubscribers(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("load subscribers: %w", err)
	}
	if len(subscribers) > 0 {
		return CycleReport{}, nil
	}
	s.logger.Info("refreshing snapshot while idle")
	return s.Refresh(ctx)
}

// ImportIfEmpty performs the initial import into an empty store.
func (s *Service) ImportIfEmpty(ctx context.Context) error {
	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return fmt.Errorf("load stored snapshot: %w", err)
	}
	if len(stored) > 0 {
		return nil
	}
	s.logger.Info("no appointments stored, importing")
	_, err = s.Refresh(ctx)
	return err
}

// DeadlineReply is what a subscriber is told after requesting a deadline.
type DeadlineReply struct {
	Subscribed bool
	Created    bool
	Deadline   time.Time
	Cutoff     time.Time
	Messages   []string
}

// SetDeadline subscribes address or moves its deadline. Deadlines past the
// scarce cutoff are answered with a summary and do not subscribe. A deadline
// in the past fails with ErrDeadlineInPast and leaves any previous deadline in
// place.
func (s *Service) SetDeadline(ctx context.Context, address string, deadline time.Time) (DeadlineReply, error) {
	existing, err := s.repo.GetSubscriber(ctx, address)
	if err != nil && !errors.Is(err, ErrSubscriberNotFound) {
		return DeadlineReply{}, fmt.Errorf("load subscriber: %w", err)
	}

	sub := Subscriber{Address: address}
	if existing != nil {
		sub = *existing
	}
	updated, err := sub.WithDeadline(deadline, s.today())
	if err != nil {
		return DeadlineReply{}, err
	}

	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return DeadlineReply{}, fmt.Errorf("load stored snapshot: %w", err)
	}
	names, err := s.locationNames(ctx)
	if err != nil {
		return DeadlineReply{}, err
	}

	answer := AnswerDeadlineQuery(stored, updated.Deadline, names)
	reply := DeadlineReply{Deadline: updated.Deadline, Cutoff: answer.Cutoff}
	if answer.Summary {
		s.logger.Info("deadline after scarce cutoff, not subscribing",
			"address", address, "deadline", updated.Deadline.Format(time.DateOnly), "cutoff", answer.Cutoff.Format(time.DateOnly))
		reply.Messages = []string{answer.Text}
		return reply, nil
	}

	if err := s.repo.UpsertSubscriber(ctx, updated); err != nil {
		return DeadlineReply{}, err
	}

	reply.Subscribed = true
	reply.Created = existing == nil
	formatted := updated.Deadline.Format(dateLayout)
	if reply.Created {
		s.logger.Info("subscriber added", "address", address, "deadline", updated.Deadline.Format(time.DateOnly))
		reply.Messages = append(reply.Messages, fmt.Sprintf(msgSubscribed, formatted))
	} else {
		s.logger.Info("deadline changed", "address", address, "deadline", updated.Deadline.Format(time.DateOnly))
		reply.Messages = append(reply.Messages, fmt.Sprintf(msgDeadlineMoved, formatted))
	}
	reply.Messages = append(reply.Messages, answer.Text)
	return reply, nil
}

// QueryDeadline answers a deadline request from the stored snapshot without
// subscribing anybody.
func (s *Service) QueryDeadline(ctx context.Context, deadline time.Time) (DeadlineAnswer, error) {
	if DateOf(deadline).Before(s.today()) {
		return DeadlineAnswer{}, ErrDeadlineInPast
	}
	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return DeadlineAnswer{}, fmt.Errorf("load stored snapshot: %w", err)
	}
	names, err := s.locationNames(ctx)
	if err != nil {
		return DeadlineAnswer{}, err
	}
	return AnswerDeadlineQuery(stored, deadline, names), nil
}

// Unsubscribe removes address. Unknown addresses yield ErrSubscriberNotFound.
func (s *Service) Unsubscribe(ctx context.Context, address string) error {
	if err := s.repo.DeleteSubscriber(ctx, address); err != nil {
		return err
	}
	s.logger.Info("subscriber removed", "address", address)
	return nil
}

// ExpireSubscribers removes subscribers whose deadline has been reached and
// tells them so.
func (s *Service) ExpireSubscribers(ctx context.Context) (int, error) {
	due, err := s.repo.SubscribersDueBy(ctx, s.today())
	if err != nil {
		return 0, fmt.Errorf("find expired subscribers: %w", err)
	}

	removed := 0
	for _, sub := range due {
		if err := s.sender.Send(ctx, sub.Address, msgExpired); err != nil {
			s.logger.Warn("failed to announce expiry", "address", sub.Address, "error", err)
		}
		if err := s.repo.DeleteSubscriber(ctx, sub.Address); err != nil && !errors.Is(err, ErrSubscriberNotFound) {
			s.logger.Error("failed to remove expired subscriber", "address", sub.Address, "error", err)
			continue
		}
		removed++
	}

	s.logger.Info("expired subscribers removed", "count", removed)
	return removed, nil
}

// Earliest renders the limit earliest stored appointments. A non-positive
// limit falls back to the configured default.
func (s *Service) Earliest(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		limit = s.cfg.EarliestLimit
	}
	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored snapshot: %w", err)
	}
	names, err := s.locationNames(ctx)
	if err != nil {
		return "", err
	}
	return ComposeEarliest(stored, names, limit), nil
}

// Cutoff returns the scarce cutoff of the stored snapshot.
func (s *Service) Cutoff(ctx context.Context) (time.Time, error) {
	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load stored snapshot: %w", err)
	}
	return EarliestScarceCutoff(stored)
}

// AppointmentsBefore returns the stored appointments dated before deadline in
// display order, together with the location names.
func (s *Service) AppointmentsBefore(ctx context.Context, deadline time.Time) ([]Appointment, LocationNames, error) {
	stored, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load stored snapshot: %w", err)
	}
	names, err := s.locationNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	early := BeforeDeadline(stored, deadline)
	slices.SortFunc(early, names.Compare)
	return early, names, nil
}

// today is the current date in the configured time zone.
func (s *Service) today() time.Time {
	tz := s.cfg.Timezone
	if tz == nil {
		tz = time.UTC
	}
	return DateOf(s.now().In(tz))
}

func (s *Service) locationNames(ctx context.Context) (LocationNames, error) {
	locs, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	return NamesOf(locs), nil
}
