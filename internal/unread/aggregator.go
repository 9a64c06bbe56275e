package unread

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/burakmert236/courtside/common/errors"
	"github.com/burakmert236/courtside/common/logger"
	"github.com/burakmert236/courtside/common/models"
)

const (
	DefaultBranchTimeout  = 8 * time.Second
	DefaultMaxConcurrency = 16
)

type MembershipReader interface {
	ListGroupIdsForUser(ctx context.Context, userId string) ([]string, error)
	GetMembership(ctx context.Context, groupId string, userId string) (*models.Membership, error)
}

type MessageCounter interface {
	CountAfter(ctx context.Context, groupId string, after time.Time) (int, error)
}

type AnnouncementCounter interface {
	CountAfter(ctx context.Context, after time.Time) (int, error)
}

type WatermarkStore interface {
	SetGroupWatermark(ctx context.Context, groupId string, userId string, readAt time.Time) error
	GetAnnouncementWatermark(ctx context.Context, userId string) (time.Time, error)
	SetAnnouncementWatermark(ctx context.Context, userId string, readAt time.Time) error
}

// Notifier is told about watermark moves so that open sessions recompute.
// An empty groupId stands for the announcement feed.
type Notifier interface {
	WatermarkAdvanced(ctx context.Context, userId string, groupId string, readAt time.Time) error
}

type Config struct {
	BranchTimeout  time.Duration
	MaxConcurrency int
}

// Totals is the result of one aggregation cycle. Failed lists the branches
// that errored or timed out; each of them contributed 0.
type Totals struct {
	UserId        string
	Total         int
	PerGroup      map[string]int
	Announcements int
	Failed        []string
	ComputedAt    time.Time
}

// AnnouncementsBranch names the announcement branch in Totals.Failed.
const AnnouncementsBranch = "announcements"

type Aggregator struct {
	memberships   MembershipReader
	messages      MessageCounter
	announcements AnnouncementCounter
	watermarks    WatermarkStore
	notifier      Notifier
	cfg           Config
	now           func() time.Time
	logger        *logger.Logger
}

func NewAggregator(
	memberships MembershipReader,
	messages MessageCounter,
	announcements AnnouncementCounter,
	watermarks WatermarkStore,
	cfg Config,
	log *logger.Logger,
) *Aggregator {
	if cfg.BranchTimeout <= 0 {
		cfg.BranchTimeout = DefaultBranchTimeout
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}

	return &Aggregator{
		memberships:   memberships,
		messages:      messages,
		announcements: announcements,
		watermarks:    watermarks,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        log.With("component", "unread_aggregator"),
	}
}

func (a *Aggregator) SetNotifier(n Notifier) {
	a.notifier = n
}

// ComputeUnreadForGroup counts the group's messages newer than the user's
// watermark. A user who is not a member contributes 0.
func (a *Aggregator) ComputeUnreadForGroup(ctx context.Context, groupId string, userId string) (int, error) {
	membership, err := a.memberships.GetMembership(ctx, groupId, userId)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotMember) {
			return 0, nil
		}
		return 0, err
	}

	watermark := membership.LastReadAt
	if watermark.IsZero() {
		watermark = models.EpochZero
	}

	count, err := a.messages.CountAfter(ctx, groupId, watermark)
	if err != nil {
		return 0, err
	}
	return max(count, 0), nil
}

func (a *Aggregator) ComputeUnreadAnnouncements(ctx context.Context, userId string) (int, error) {
	watermark, err := a.watermarks.GetAnnouncementWatermark(ctx, userId)
	if err != nil {
		return 0, err
	}
	if watermark.IsZero() {
		watermark = models.EpochZero
	}

	count, err := a.announcements.CountAfter(ctx, watermark)
	if err != nil {
		return 0, err
	}
	return max(count, 0), nil
}

type branchResult struct {
	name   string
	count  int
	failed bool
}

// AggregateTotal fans out one branch per group plus one for announcements
// and combines only after every branch has finished. Branch failures count
// as 0 and are reported in Totals.Failed; only a failed membership listing
// or a cancelled ctx fails the cycle.
func (a *Aggregator) AggregateTotal(ctx context.Context, userId string) (Totals, error) {
	groupIds, err := a.memberships.ListGroupIdsForUser(ctx, userId)
	if err != nil {
		a.logger.Warn("failed to list memberships", "user_id", userId, "error", err)
		return Totals{}, err
	}

	results := make([]branchResult, len(groupIds)+1)

	var g errgroup.Group
	g.SetLimit(a.cfg.MaxConcurrency)

	for i, groupId := range groupIds {
		g.Go(func() error {
			count, err := a.runBranch(ctx, func(bctx context.Context) (int, error) {
				return a.ComputeUnreadForGroup(bctx, groupId, userId)
			})
			results[i] = a.branchOutcome(userId, groupId, count, err)
			return nil
		})
	}

	g.Go(func() error {
		count, err := a.runBranch(ctx, func(bctx context.Context) (int, error) {
			return a.ComputeUnreadAnnouncements(bctx, userId)
		})
		results[len(groupIds)] = a.branchOutcome(userId, AnnouncementsBranch, count, err)
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Totals{}, err
	}

	totals := Totals{
		UserId:     userId,
		PerGroup:   make(map[string]int, len(groupIds)),
		Failed:     make([]string, 0),
		ComputedAt: a.now(),
	}
	for i, r := range results {
		if r.failed {
			totals.Failed = append(totals.Failed, r.name)
		}
		if i == len(groupIds) {
			totals.Announcements = r.count
		} else {
			totals.PerGroup[r.name] = r.count
		}
		totals.Total += r.count
	}
	sort.Strings(totals.Failed)

	a.logger.Debug("unread aggregated",
		"user_id", userId,
		"total", totals.Total,
		"groups", len(groupIds),
		"failed", len(totals.Failed),
	)

	return totals, nil
}

// runBranch bounds fn by the branch timeout. A branch that ignores its ctx
// is abandoned; its late result lands in a buffered channel nobody reads.
func (a *Aggregator) runBranch(ctx context.Context, fn func(context.Context) (int, error)) (int, error) {
	bctx, cancel := context.WithTimeout(ctx, a.cfg.BranchTimeout)
	defer cancel()

	type outcome struct {
		count int
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		count, err := fn(bctx)
		done <- outcome{count: count, err: err}
	}()

	select {
	case out := <-done:
		return out.count, out.err
	case <-bctx.Done():
		return 0, apperrors.Wrap(bctx.Err(), apperrors.CodeTimeout, "unread branch did not finish in time")
	}
}

func (a *Aggregator) branchOutcome(userId string, name string, count int, err error) branchResult {
	if err != nil {
		a.logger.Warn("unread branch failed, counting as zero",
			"user_id", userId,
			"branch", name,
			"error", err,
		)
		return branchResult{name: name, failed: true}
	}
	return branchResult{name: name, count: count}
}

// MarkGroupRead moves the user's group watermark to now.
func (a *Aggregator) MarkGroupRead(ctx context.Context, groupId string, userId string) error {
	readAt := a.now()
	if err := a.watermarks.SetGroupWatermark(ctx, groupId, userId, readAt); err != nil {
		return err
	}

	a.notify(ctx, userId, groupId, readAt)
	return nil
}

func (a *Aggregator) MarkAnnouncementsRead(ctx context.Context, userId string) error {
	readAt := a.now()
	if err := a.watermarks.SetAnnouncementWatermark(ctx, userId, readAt); err != nil {
		return err
	}

	a.notify(ctx, userId, "", readAt)
	return nil
}

func (a *Aggregator) notify(ctx context.Context, userId string, groupId string, readAt time.Time) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.WatermarkAdvanced(ctx, userId, groupId, readAt); err != nil {
		a.logger.Warn("failed to announce watermark move", "user_id", userId, "group_id", groupId, "error", err)
	}
}
