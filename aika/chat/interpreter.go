package chat

import (
	"sort"

	"aika/aika/notify"
	"aika/aika/types"
	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

const (
	criticalNoticeTitle = "Bantuan profesional dihubungi"
	criticalNoticeBody  = "Situasimu terdeteksi membutuhkan perhatian segera. Tim profesional telah dihubungi untuk membantumu."
	highNoticeTitle     = "Pertimbangkan dukungan tambahan"
	highNoticeBody      = "Kami menyarankan untuk menghubungi layanan dukungan kampus bila kamu membutuhkannya."
	escalationTitle     = "Kasus diteruskan"
	cancelledNotice     = "Pesan dibatalkan."
	timeoutNotice       = "Waktu tunggu habis sebelum Aika selesai menjawab. Silakan kirim ulang pesanmu."
	incompleteNotice    = "Respons terputus sebelum selesai. Silakan kirim ulang pesanmu."
)

// TurnInterpreter consumes the decoded event stream of one in-flight turn
// and applies it to the conversation: incremental text, agent activity,
// risk side effects, finalization. One interpreter lives exactly one turn.
type TurnInterpreter struct {
	conv     *Conversation
	activity *ActivityLog
	notifier notify.Notifier
	split    bool

	agents map[string]struct{}

	metadata     *types.TurnMetadata
	notifiedRisk bool
	notifiedCase bool
	done         bool
	failed       bool
}

func NewTurnInterpreter(conv *Conversation, activity *ActivityLog, notifier notify.Notifier, split bool) *TurnInterpreter {
	return &TurnInterpreter{
		conv:     conv,
		activity: activity,
		notifier: notifier,
		split:    split,
		agents:   make(map[string]struct{}),
	}
}

func (ti *TurnInterpreter) Done() bool   { return ti.done }
func (ti *TurnInterpreter) Failed() bool { return ti.failed }

// ActiveAgents returns the agents currently working on this turn, sorted
// for stable display.
func (ti *TurnInterpreter) ActiveAgents() []string {
	out := make([]string, 0, len(ti.agents))
	for a := range ti.agents {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// HandleEvent processes one stream event in arrival order and reports
// whether the turn is finished. Events after the turn finished are
// ignored.
func (ti *TurnInterpreter) HandleEvent(ev types.StreamEvent) bool {
	if ti.done {
		return true
	}
	switch ev.Type {
	case types.EventAgentStart:
		ti.agents[ev.AgentStart.Agent] = struct{}{}
		ti.activity.Add(ActivityAgentStart, ev.AgentStart.Agent, nil, "")

	case types.EventAgentUpdate:
		if ev.AgentUpdate.Status == types.StatusPartialResponse {
			ti.conv.AppendStreamText(ev.AgentUpdate.Text)
		} else {
			ti.activity.Add(ActivityStatus, ev.AgentUpdate.Agent, nil, ev.AgentUpdate.Status)
		}

	case types.EventToolStart:
		ti.activity.Add(ActivityToolStart, ev.Tool.Agent, toolNames(ev.Tool), "")

	case types.EventToolEnd:
		ti.activity.Add(ActivityToolEnd, ev.Tool.Agent, toolNames(ev.Tool), "")

	case types.EventMetadata:
		ti.metadata = ev.Metadata
		ti.applyMetadataSideEffects(ev.Metadata)

	case types.EventFinalResponse:
		// The final response is authoritative: it replaces whatever was
		// accumulated from partial chunks.
		ti.finalize(ev.FinalResponse.Response)

	case types.EventError:
		ti.abort(ev.Error.Message)

	case types.EventStreamEnd:
		// channel closed before the turn completed
		if ti.conv.streaming() != nil {
			ti.conv.FailStreaming(incompleteNotice)
		}
		logging.AppLogger.Warn("stream ended before turn completed")
		ti.done = true
		ti.failed = true
	}
	return ti.done
}

func (ti *TurnInterpreter) finalize(finalText string) {
	sections := []string{finalText}
	if ti.split {
		sections = SplitSections(finalText)
	}
	ti.conv.FinalizeTurn(sections, ti.metadata)
	ti.done = true
}

func (ti *TurnInterpreter) abort(message string) {
	if message == "" {
		message = "Terjadi kesalahan saat memproses pesanmu."
	}
	ti.conv.FailStreaming(message)
	ti.activity.Add(ActivityError, "", nil, message)
	ti.notifier.Notify(notify.Notice{
		Level: notify.LevelWarning,
		Title: "Aika mengalami kendala",
		Body:  message,
	})
	ti.done = true
	ti.failed = true
}

// applyMetadataSideEffects emits the risk and escalation notices. Each is
// independent and fires at most once per turn.
func (ti *TurnInterpreter) applyMetadataSideEffects(meta *types.TurnMetadata) {
	if meta.RiskAssessment != nil && !ti.notifiedRisk {
		switch meta.RiskAssessment.RiskLevel {
		case types.RiskCritical:
			ti.notifiedRisk = true
			ti.notifier.Notify(notify.Notice{
				Level: notify.LevelUrgent,
				Title: criticalNoticeTitle,
				Body:  criticalNoticeBody,
			})
		case types.RiskHigh:
			ti.notifiedRisk = true
			ti.notifier.Notify(notify.Notice{
				Level: notify.LevelWarning,
				Title: highNoticeTitle,
				Body:  highNoticeBody,
			})
		}
	}
	if meta.EscalationTriggered && meta.CaseID != "" && !ti.notifiedCase {
		ti.notifiedCase = true
		ti.notifier.Notify(notify.Notice{
			Level: notify.LevelInfo,
			Title: escalationTitle,
			Body:  "Percakapanmu telah diteruskan ke konselor (kasus " + meta.CaseID + ").",
		})
	}
	logging.AppLogger.Info("turn metadata received",
		zap.String("intent", meta.Intent),
		zap.Strings("agents_invoked", meta.AgentsInvoked),
		zap.Int64("processing_time_ms", meta.ProcessingTimeMs),
		zap.Bool("escalation", meta.EscalationTriggered),
	)
}

func toolNames(t *types.ToolData) []string {
	if len(t.Tools) > 0 {
		return t.Tools
	}
	if t.Tool != "" {
		return []string{t.Tool}
	}
	return nil
}
