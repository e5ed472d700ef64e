// Package httpapi exposes the policy engine over HTTP. The eligibility
// endpoint is advisory: it evaluates against the freshest rules it can
// reach and says so when they are stale. The work-record endpoint is
// authoritative: the decision is re-made server-side inside the insert
// transaction, so nothing a client sends can flip it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fieldreach/sendgate/internal/policy/common/clock"
	"github.com/fieldreach/sendgate/internal/policy/common/log"
	"github.com/fieldreach/sendgate/internal/policy/common/utils"
	"github.com/fieldreach/sendgate/internal/policy/domain"
	"github.com/fieldreach/sendgate/internal/policy/repos/snapshot"
	"github.com/fieldreach/sendgate/internal/policy/repos/workrecord"
	"github.com/fieldreach/sendgate/internal/policy/services/engine"
)

// restrictedMessage is the only failure text clients see when the server
// cannot decide. No internals, and phrased as a block: an undecidable send
// is a blocked send.
const restrictedMessage = "sending is currently restricted"

// RuleSource loads a list's active rules from the primary store.
type RuleSource interface {
	ActiveRules(ctx context.Context, listID string) (snapshot.RuleSnapshot, error)
}

// Submitter runs the authoritative gate-and-insert path.
type Submitter interface {
	Submit(ctx context.Context, listID, target, payload string) (workrecord.WorkRecord, error)
}

// SnapshotStore is the local fallback for rule snapshots.
type SnapshotStore interface {
	Get(listID string) (snapshot.RuleSnapshot, bool, error)
	Put(listID string, snap snapshot.RuleSnapshot) error
}

// Handler serves the policy endpoints.
type Handler struct {
	rules     RuleSource
	submitter Submitter
	snapshots SnapshotStore
	clock     clock.Clock
	matchers  *matcherSet
}

func NewHandler(rules RuleSource, submitter Submitter, snapshots SnapshotStore, clk clock.Clock, matchers *matcherSet) *Handler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if matchers == nil {
		matchers = NewMatcherSet(0, 0)
	}
	return &Handler{
		rules:     rules,
		submitter: submitter,
		snapshots: snapshots,
		clock:     clk,
		matchers:  matchers,
	}
}

type reasonBody struct {
	RuleID   string `json:"rule_id,omitempty"`
	RuleName string `json:"rule_name,omitempty"`
	Text     string `json:"text"`
}

type decisionBody struct {
	Blocked        bool         `json:"blocked"`
	Reasons        []reasonBody `json:"reasons,omitempty"`
	NextEligibleAt *time.Time   `json:"next_eligible_at,omitempty"`
	Stale          bool         `json:"stale,omitempty"`
}

func decisionJSON(dec domain.Decision, stale bool) decisionBody {
	body := decisionBody{Blocked: dec.Blocked, Stale: stale}
	for _, r := range dec.Reasons {
		rb := reasonBody{RuleName: r.RuleName, Text: r.Text}
		if r.RuleID != uuid.Nil {
			rb.RuleID = r.RuleID.String()
		}
		body.Reasons = append(body.Reasons, rb)
	}
	if dec.HasNextEligible() {
		t := dec.NextEligibleAt
		body.NextEligibleAt = &t
	}
	return body
}

// Eligibility answers GET /v1/lists/:listID/eligibility[?target=...].
// Primary-store failures fall back to the last locally stored snapshot;
// when neither source is reachable the answer is 503 blocked.
func (h *Handler) Eligibility(c *gin.Context) {
	listID := c.Param("listID")
	target := c.Query("target")

	snap, stale, err := h.loadRules(c.Request.Context(), listID)
	if err != nil {
		if errors.Is(err, workrecord.ErrListNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "send list not found"})
			return
		}
		log.Error(map[string]any{"list": listID, "err": err.Error()}, "no rule source reachable, failing closed")
		c.JSON(http.StatusServiceUnavailable, decisionBody{
			Blocked: true,
			Reasons: []reasonBody{{Text: restrictedMessage}},
		})
		return
	}

	// The snapshot fallback is a loading boundary: enabled/deleted filtering
	// happens here, never inside the evaluator.
	dec := engine.EvaluateTemporal(domain.ActiveTemporal(snap.Temporal), h.clock.Now(), utils.LocationOrUTC(snap.Zone))
	if target != "" {
		dec = engine.Compose(dec, h.matchers.match(listID, snap, target))
	}
	c.JSON(http.StatusOK, decisionJSON(dec, stale))
}

// loadRules prefers the primary store and mirrors successful loads into the
// local snapshot store. The bool reports staleness: true means the snapshot
// fallback served the request.
func (h *Handler) loadRules(ctx context.Context, listID string) (snapshot.RuleSnapshot, bool, error) {
	snap, err := h.rules.ActiveRules(ctx, listID)
	if err == nil {
		if h.snapshots != nil {
			if perr := h.snapshots.Put(listID, snap); perr != nil {
				log.Warn(map[string]any{"list": listID, "err": perr.Error()}, "snapshot mirror write failed")
			}
		}
		return snap, false, nil
	}
	if errors.Is(err, workrecord.ErrListNotFound) || h.snapshots == nil {
		return snapshot.RuleSnapshot{}, false, err
	}

	log.Warn(map[string]any{"list": listID, "err": err.Error()}, "primary rule source unavailable, trying local snapshot")
	snap, ok, serr := h.snapshots.Get(listID)
	if serr != nil || !ok {
		return snapshot.RuleSnapshot{}, false, err
	}
	return snap, true, nil
}

type submitRequest struct {
	Target  string `json:"target"`
	Payload string `json:"payload"`
}

// SubmitWorkRecord answers POST /v1/lists/:listID/work-records. A blocked
// decision is 409 with the reasons; any failure to decide is 503 blocked.
func (h *Handler) SubmitWorkRecord(c *gin.Context) {
	listID := c.Param("listID")

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with target and payload"})
		return
	}

	rec, err := h.submitter.Submit(c.Request.Context(), listID, req.Target, req.Payload)
	if err != nil {
		var blocked *workrecord.BlockedError
		switch {
		case errors.As(err, &blocked):
			c.JSON(http.StatusConflict, decisionJSON(blocked.Decision, false))
		case errors.Is(err, workrecord.ErrListNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "send list not found"})
		default:
			log.Error(map[string]any{"list": listID, "err": err.Error()}, "work record submission failed")
			c.JSON(http.StatusServiceUnavailable, decisionBody{
				Blocked: true,
				Reasons: []reasonBody{{Text: restrictedMessage}},
			})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         rec.ID.String(),
		"created_at": rec.CreatedAt,
	})
}

// Ping answers GET /ping.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}
