// Package adjudicator rules on connection attempts, either through a remote
// HTTP judge or with a local length heuristic.
package adjudicator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/game"
)

// MinJustificationLength is the shortest trimmed justification the fallback
// heuristic approves, in runes.
const MinJustificationLength = 20

// DefaultTimeout bounds one HTTP evaluation.
const DefaultTimeout = 15 * time.Second

// errBadResponse marks a judge reply that arrived but could not be used.
var errBadResponse = errors.New("bad judge response")

const tracerName = "github.com/peterkuimelis/anchorlink/internal/adjudicator"

// HeuristicJudge approves any justification of at least
// MinJustificationLength runes. It never calls out.
type HeuristicJudge struct{}

func (HeuristicJudge) Evaluate(_ context.Context, req game.JudgeRequest) game.Ruling {
	return heuristic(req, "")
}

func heuristic(req game.JudgeRequest, cause string) game.Ruling {
	n := utf8.RuneCountInString(strings.TrimSpace(req.Justification))
	r := game.Ruling{Fallback: true}
	if n >= MinJustificationLength {
		r.Approved = true
		r.Reasoning = fmt.Sprintf("Accepted: the link between %s and %s is explained in enough detail.", cardTitle(req), anchorText(req))
	} else {
		r.Reasoning = fmt.Sprintf("Rejected: the justification needs at least %d characters.", MinJustificationLength)
	}
	if cause != "" {
		r.Reasoning += " (judge unavailable: " + cause + ")"
	}
	return r
}

// HTTPConfig configures the remote judge endpoint and HTTP behavior.
type HTTPConfig struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPJudge posts each attempt to a remote judge service and falls back to
// the heuristic on any failure.
type HTTPJudge struct {
	cfg    HTTPConfig
	tracer trace.Tracer
}

// NewHTTPJudge builds a judge for cfg.URL.
func NewHTTPJudge(cfg HTTPConfig) *HTTPJudge {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &HTTPJudge{cfg: cfg, tracer: otel.Tracer(tracerName)}
}

// New returns an HTTP judge when url is set, the heuristic otherwise.
func New(cfg HTTPConfig) game.Judge {
	if strings.TrimSpace(cfg.URL) == "" {
		return HeuristicJudge{}
	}
	return NewHTTPJudge(cfg)
}

type ruleRequest struct {
	AnchorText      string   `json:"anchor_text"`
	AnchorReference string   `json:"anchor_reference"`
	AnchorThemes    []string `json:"anchor_themes"`
	CardTitle       string   `json:"card_title"`
	CardReference   string   `json:"card_reference"`
	Justification   string   `json:"justification"`
	OptionID        string   `json:"option_id,omitempty"`
}

type ruleResponse struct {
	Approved       *bool  `json:"approved"`
	Reasoning      string `json:"reasoning"`
	ConnectionType string `json:"connection_type,omitempty"`
	Strength       int    `json:"strength,omitempty"`
}

// Evaluate implements game.Judge.
func (j *HTTPJudge) Evaluate(ctx context.Context, req game.JudgeRequest) game.Ruling {
	ctx, span := j.tracer.Start(ctx, "adjudicator.Evaluate", trace.WithAttributes(
		attribute.String("anchor", anchorText(req)),
		attribute.String("card", cardTitle(req)),
		attribute.Bool("hint", req.OptionID != ""),
	))
	defer span.End()

	ruling, err := j.call(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		j.cfg.Logger.Warn("judge unavailable, using fallback",
			zap.String("card", cardTitle(req)),
			zap.Error(err),
		)
		ruling = heuristic(req, shortCause(err))
	}
	span.SetAttributes(attribute.Bool("approved", ruling.Approved), attribute.Bool("fallback", ruling.Fallback))
	return ruling
}

func (j *HTTPJudge) call(ctx context.Context, req game.JudgeRequest) (game.Ruling, error) {
	ctx, cancel := context.WithTimeout(ctx, j.cfg.Timeout)
	defer cancel()

	body := ruleRequest{
		CardTitle:     cardTitle(req),
		Justification: strings.TrimSpace(req.Justification),
		OptionID:      req.OptionID,
	}
	if req.Anchor != nil {
		body.AnchorText = req.Anchor.Text
		body.AnchorReference = req.Anchor.Reference
		body.AnchorThemes = req.Anchor.Themes
	}
	if req.Card != nil {
		body.CardReference = req.Card.Reference
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return game.Ruling{}, fmt.Errorf("marshal ruling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.cfg.URL, bytes.NewReader(requestBody))
	if err != nil {
		return game.Ruling{}, fmt.Errorf("build ruling request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if j.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+j.cfg.APIKey)
	}

	res, err := j.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return game.Ruling{}, fmt.Errorf("ruling request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return game.Ruling{}, fmt.Errorf("read ruling error body: %w", err)
		}
		return game.Ruling{}, fmt.Errorf("%w: status %d: %s", errBadResponse, res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload ruleResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&payload); err != nil {
		return game.Ruling{}, fmt.Errorf("%w: decode: %v", errBadResponse, err)
	}
	if payload.Approved == nil {
		return game.Ruling{}, fmt.Errorf("%w: no approved field", errBadResponse)
	}
	return game.Ruling{
		Approved:       *payload.Approved,
		Reasoning:      strings.TrimSpace(payload.Reasoning),
		ConnectionType: payload.ConnectionType,
		Strength:       clamp(payload.Strength, 0, 100),
	}, nil
}

func shortCause(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, errBadResponse):
		return "bad response"
	default:
		return "unreachable"
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cardTitle(req game.JudgeRequest) string {
	if req.Card == nil {
		return ""
	}
	return req.Card.Title
}

func anchorText(req game.JudgeRequest) string {
	if req.Anchor == nil {
		return ""
	}
	return req.Anchor.Text
}
