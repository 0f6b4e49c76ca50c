// Package notify derives per-room unread summaries from the server's
// subscription list and spawns toasts for newly-arrived activity.
// Read-acknowledgement and dismissals are local-only state; nothing
// here writes back to the server.
package notify

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/npezzotti/rocketgate/internal/database"
	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/stats"
	"github.com/npezzotti/rocketgate/internal/store"
	"github.com/npezzotti/rocketgate/internal/types"
	"github.com/teris-io/shortid"
)

const (
	metricPolls        = "NotificationPolls"
	metricPollFailures = "NotificationPollFailures"
	metricToasts       = "ToastsSpawned"
)

// badgeLimit is the highest count shown verbatim; anything above is
// clamped to "99+".
const badgeLimit = 99

// Aggregator polls the subscription list, keeps the held notification
// set and the dismissal watermarks, and owns the toast lifecycle. A
// dismissed room stays suppressed until its unread count rises above
// the count recorded at dismissal time, at which point it re-surfaces
// with a toast.
type Aggregator struct {
	mu            sync.Mutex
	notifications []types.Notification
	dismissals    map[string]int
	toasts        []types.Toast
	stop          chan struct{}

	api      rocketchat.ChatAPI
	sessions *store.SessionStore
	prefs    *store.PrefStore
	repo     database.StateRepository
	stats    stats.StatsProvider
	log      *log.Logger

	pollInterval  time.Duration
	toastDuration time.Duration

	generateToastId func() (string, error)
}

func NewAggregator(logger *log.Logger, api rocketchat.ChatAPI, sessions *store.SessionStore, prefs *store.PrefStore, repo database.StateRepository, sp stats.StatsProvider, pollInterval, toastDuration time.Duration) *Aggregator {
	sp.RegisterMetric(metricPolls)
	sp.RegisterMetric(metricPollFailures)
	sp.RegisterMetric(metricToasts)

	a := &Aggregator{
		dismissals:      make(map[string]int),
		api:             api,
		sessions:        sessions,
		prefs:           prefs,
		repo:            repo,
		stats:           sp,
		log:             logger,
		pollInterval:    pollInterval,
		toastDuration:   toastDuration,
		generateToastId: shortid.Generate,
	}
	a.restoreDismissals()
	return a
}

func (a *Aggregator) restoreDismissals() {
	if a.repo == nil {
		return
	}
	dismissals, err := a.repo.ListDismissals()
	if err != nil {
		a.log.Printf("load dismissals: %v", err)
		return
	}
	a.mu.Lock()
	for _, d := range dismissals {
		a.dismissals[d.RoomID] = d.Unread
	}
	a.mu.Unlock()
}

// Run starts the polling loop. Stop tears it down; no poll fires after
// Stop returns.
func (a *Aggregator) Run() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return
	}
	a.stop = make(chan struct{})
	go a.poll(a.stop)
}

func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
}

// Reset drops all held state, used at logout. In-memory read
// watermarks go with it; only persisted dismissals carry over to the
// next session.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.notifications = nil
	a.toasts = nil
	a.dismissals = make(map[string]int)
	a.mu.Unlock()

	a.restoreDismissals()
}

func (a *Aggregator) poll(stop chan struct{}) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.pollOnce()
		}
	}
}

// pollOnce fetches the subscription list and rebuilds the held set.
// Entries below their dismissal watermark stay suppressed; an entry
// whose unread rose above the watermark is un-dismissed and treated as
// newly present. Room ids absent from the previous held set with
// unread > 0 spawn toasts, unless do-not-disturb is on.
func (a *Aggregator) pollOnce() {
	a.stats.Incr(metricPolls)

	session, epoch := a.sessions.Current()
	if !session.Valid() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.pollInterval)
	subscriptions, err := a.api.GetSubscriptions(ctx, session)
	cancel()
	if err != nil {
		a.stats.Incr(metricPollFailures)
		a.log.Printf("poll subscriptions: %v", err)
		return
	}

	if a.sessions.Stale(epoch) {
		return
	}

	a.mu.Lock()

	held := make(map[string]struct{}, len(a.notifications))
	for _, n := range a.notifications {
		held[n.RoomID] = struct{}{}
	}

	var undismissed []string
	next := a.notifications[:0:0]
	for _, sub := range subscriptions {
		if sub.Unread == 0 && sub.Mentions == 0 {
			continue
		}
		if watermark, ok := a.dismissals[sub.RoomID]; ok {
			if sub.Unread <= watermark {
				continue
			}
			delete(a.dismissals, sub.RoomID)
			undismissed = append(undismissed, sub.RoomID)
			delete(held, sub.RoomID)
		}
		next = append(next, types.Notification{
			RoomID:   sub.RoomID,
			Name:     sub.Name,
			Type:     sub.Type,
			Unread:   sub.Unread,
			Mentions: sub.Mentions,
		})
	}

	dnd := a.prefs.DoNotDisturb()
	for _, n := range next {
		if n.Unread == 0 {
			continue
		}
		if _, ok := held[n.RoomID]; ok {
			continue
		}
		if !dnd {
			a.spawnToastLocked(n)
		}
	}

	a.notifications = next
	a.mu.Unlock()

	if len(undismissed) > 0 && a.repo != nil {
		for _, roomID := range undismissed {
			if err := a.repo.RemoveDismissal(roomID); err != nil {
				a.log.Printf("remove dismissal for room %s: %v", roomID, err)
			}
		}
	}
}

func (a *Aggregator) spawnToastLocked(n types.Notification) {
	id, err := a.generateToastId()
	if err != nil {
		a.log.Print("generateToastId:", err)
		return
	}

	toast := types.Toast{
		ID:        id,
		RoomID:    n.RoomID,
		Name:      n.Name,
		Type:      n.Type,
		Unread:    n.Unread,
		Mentions:  n.Mentions,
		CreatedAt: time.Now(),
	}
	a.toasts = append(a.toasts, toast)
	a.stats.Incr(metricToasts)

	time.AfterFunc(a.toastDuration, func() {
		a.DismissToast(id)
	})
}

// MarkRead acknowledges the room's unread count locally: the held
// entry is removed and its count becomes a read watermark, so polls
// reporting an unchanged server count do not re-toast the room the
// user just opened. A higher count resurfaces it like any dismissal.
// Called on room selection. Read state is never pushed to the server.
func (a *Aggregator) MarkRead(roomID string) {
	a.mu.Lock()
	watermark, hadDismissal := a.dismissals[roomID]
	for i := range a.notifications {
		if a.notifications[i].RoomID == roomID {
			if a.notifications[i].Unread > watermark {
				watermark = a.notifications[i].Unread
			}
			a.notifications = append(a.notifications[:i], a.notifications[i+1:]...)
			break
		}
	}
	a.dismissals[roomID] = watermark
	a.mu.Unlock()

	// The read watermark lives in memory only; a persisted dismissal
	// for the room is superseded by it.
	if hadDismissal && a.repo != nil {
		if err := a.repo.RemoveDismissal(roomID); err != nil {
			a.log.Printf("remove dismissal for room %s: %v", roomID, err)
		}
	}
}

// Dismiss suppresses the room's notification until its unread count
// rises above the count held right now.
func (a *Aggregator) Dismiss(roomID string) {
	a.mu.Lock()
	var watermark int
	for i := range a.notifications {
		if a.notifications[i].RoomID == roomID {
			watermark = a.notifications[i].Unread
			a.notifications = append(a.notifications[:i], a.notifications[i+1:]...)
			break
		}
	}
	a.dismissals[roomID] = watermark
	a.mu.Unlock()

	a.persistDismissals([]database.Dismissal{{RoomID: roomID, Unread: watermark}})
}

// ClearAll moves every held room id into the dismissal set and empties
// the held set. Purely local suppression; no remote mark-read call.
func (a *Aggregator) ClearAll() {
	a.mu.Lock()
	cleared := make([]database.Dismissal, 0, len(a.notifications))
	for _, n := range a.notifications {
		a.dismissals[n.RoomID] = n.Unread
		cleared = append(cleared, database.Dismissal{RoomID: n.RoomID, Unread: n.Unread})
	}
	a.notifications = nil
	a.mu.Unlock()

	a.persistDismissals(cleared)
}

func (a *Aggregator) persistDismissals(dismissals []database.Dismissal) {
	if a.repo == nil || len(dismissals) == 0 {
		return
	}
	if err := a.repo.AddDismissals(dismissals); err != nil {
		a.log.Printf("persist dismissals: %v", err)
	}
}

// DismissToast removes a toast before its expiry. Removing a toast
// that already expired is a no-op.
func (a *Aggregator) DismissToast(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.toasts {
		if a.toasts[i].ID == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

// ResolveToast returns the room id a toast points at, removing the
// toast. Used when the user opens a toast.
func (a *Aggregator) ResolveToast(id string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.toasts {
		if a.toasts[i].ID == id {
			roomID := a.toasts[i].RoomID
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return roomID, true
		}
	}
	return "", false
}

// Notifications returns the held set sorted by room id for a stable
// listing.
func (a *Aggregator) Notifications() []types.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Notification, len(a.notifications))
	copy(out, a.notifications)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RoomID < out[j].RoomID
	})
	return out
}

func (a *Aggregator) Toasts() []types.Toast {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.Toast, len(a.toasts))
	copy(out, a.toasts)
	return out
}

// TotalUnread is the sum of unread across all held notifications.
func (a *Aggregator) TotalUnread() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total int
	for _, n := range a.notifications {
		total += n.Unread
	}
	return total
}

// Badge renders a count for display, clamping above 99.
func Badge(total int) string {
	if total > badgeLimit {
		return "99+"
	}
	return fmt.Sprintf("%d", total)
}
