package api

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/notice-summarizer/internal/kakao"
	"github.com/JakeFAU/notice-summarizer/internal/metrics"
	"github.com/JakeFAU/notice-summarizer/internal/notice"
)

const maxSkillBody = 1 << 20

// handleSkill answers within the platform's synchronous window: either an
// immediate simpleText for requests that cannot become jobs, or a
// useCallback acknowledgement once the job is running in the background.
// The status is always 200 so the platform renders the text.
func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())
	logger := s.logger.With(zap.String("request_id", requestID))

	if !s.opts.HasCredential {
		s.reply(w, "no_credential", notice.MsgNoCredential)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSkillBody))
	if err != nil {
		logger.Warn("read skill body failed", zap.Error(err))
		s.reply(w, "bad_request", notice.MsgBadRequest)
		return
	}
	req, err := kakao.ParseSkillRequest(body)
	if err != nil {
		logger.Warn("decode skill request failed", zap.Error(err))
		s.reply(w, "bad_request", notice.MsgBadRequest)
		return
	}

	imageURL := req.ImageURL()
	if imageURL == "" {
		s.reply(w, "no_image", notice.MsgNoImage)
		return
	}
	callbackURL := req.CallbackURL()
	if callbackURL == "" {
		logger.Warn("skill request without callback url")
		s.reply(w, "no_callback", notice.MsgNoCallback)
		return
	}

	jobID, err := s.idGen.NewID()
	if err != nil {
		logger.Error("generate job id failed", zap.Error(err))
		s.reply(w, "error", notice.MsgTransient)
		return
	}
	job := notice.Job{
		ID:            jobID,
		RequestID:     requestID,
		ImageURL:      imageURL,
		CallbackURL:   callbackURL,
		CallbackToken: r.Header.Get(s.opts.TokenHeader),
		Accepted:      s.clock.Now(),
	}
	if _, err := s.submitter.Submit(job); err != nil {
		logger.Error("submit job failed", zap.String("job_id", jobID), zap.Error(err))
		s.reply(w, "error", notice.MsgTransient)
		return
	}

	logger.Info("job accepted",
		zap.String("job_id", jobID),
		zap.String("image_host", metrics.SanitizeSite(imageURL)),
		zap.Bool("callback_token", job.CallbackToken != ""),
	)
	metrics.ObserveWebhook("accepted")
	writeKakao(w, kakao.CallbackAck())
}

func (s *Server) reply(w http.ResponseWriter, result, text string) {
	metrics.ObserveWebhook(result)
	writeKakao(w, kakao.SimpleText(text))
}

func writeKakao(w http.ResponseWriter, resp kakao.Response) {
	body, err := kakao.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		zap.L().Error("write skill response failed", zap.Error(err))
	}
}
