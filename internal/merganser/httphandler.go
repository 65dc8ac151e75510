package merganser

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

type httpRespWriter struct {
	http.ResponseWriter
	logger *zap.Logger
}

func newHTTPRespWriter(logger *zap.Logger, resp http.ResponseWriter) *httpRespWriter {
	return &httpRespWriter{
		ResponseWriter: resp,
		logger:         logger,
	}
}

// WriteStr writes a string to the http response writer.
// If an error happens, it is logged with info priority and false is
// returned. If it succeeded true is returned.
func (rw *httpRespWriter) WriteStr(str string) (wasSuccessful bool) {
	_, err := rw.ResponseWriter.Write([]byte(str))
	if err != nil {
		rw.logger.Info("sending http response failed", zap.Error(err))
		return false
	}

	return true
}

// queueEntry describes one pending merge request in the queue listing.
type queueEntry struct {
	iid           int
	targetBranch  string
	enqueuedSince time.Time
	// coolingUntil is when the next attempt is allowed, the zero value
	// when the merge request is due.
	coolingUntil time.Time
	running      bool
}

func (e *queueEntry) status() string {
	switch {
	case e.running:
		return "running"
	case !e.coolingUntil.IsZero():
		return "cooling down until " + e.coolingUntil.Format("15:04:05")
	default:
		return "waiting"
	}
}

// queueState returns the pending merge requests of the loop in queue
// order.
func (l *projectLoop) queueState(now time.Time) []queueEntry {
	var running map[int]struct{}

	if job := l.getExecuting(); job != nil {
		running = make(map[int]struct{}, len(job.iids))
		for _, iid := range job.iids {
			running[iid] = struct{}{}
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	result := make([]queueEntry, 0, l.pending.Len())

	l.pending.Foreach(func(c *candidate) bool {
		entry := queueEntry{
			iid:           c.iid,
			targetBranch:  c.targetBranch,
			enqueuedSince: c.enqueuedSince,
		}

		if e, exist := l.cooldowns.m[c.iid]; exist && e.until.After(now) {
			entry.coolingUntil = e.until
		}

		_, entry.running = running[c.iid]

		result = append(result, entry)

		return true
	})

	return result
}

// HTTPHandlerQueues writes a plain text listing of the pending merge
// requests of every monitored project, so that operators can inspect what
// the bot is currently working on.
func (b *Bot) HTTPHandlerQueues(respWr http.ResponseWriter, _ *http.Request) {
	resp := newHTTPRespWriter(b.logger, respWr)

	resp.Header().Add("Content-Type", "text/plain")

	type loopRef struct {
		path string
		loop *projectLoop
	}

	b.lock.Lock()

	refs := make([]loopRef, 0, len(b.loops))
	for _, handle := range b.loops {
		if handle.loop == nil {
			continue
		}

		refs = append(refs, loopRef{path: handle.project.path, loop: handle.loop})
	}

	b.lock.Unlock()

	sort.Slice(refs, func(i, j int) bool { return refs[i].path < refs[j].path })

	now := time.Now()

	var result strings.Builder
	var queued int

	for _, ref := range refs {
		entries := ref.loop.queueState(now)
		if len(entries) == 0 {
			continue
		}

		queued += len(entries)

		result.WriteString(fmt.Sprintf("Project: %s\n", ref.path))

		for i, entry := range entries {
			result.WriteString(fmt.Sprintf(
				"\t#%-3d !%-5d %s\tadded: %s\t%s\n",
				i+1,
				entry.iid,
				entry.targetBranch,
				entry.enqueuedSince.Format(time.RFC822),
				entry.status(),
			))
		}
	}

	if queued == 0 {
		resp.WriteStr("no merge requests queued\n")
		return
	}

	resp.WriteStr(result.String())
}
