package notice

import (
	"fmt"
	"math"
	"time"
)

// User-facing texts. Kept short and free of technical detail.
const (
	MsgNoImage         = "사진이 안 들어왔어요.\n가정통신문 사진을 1장 보내주세요 🙂"
	MsgNoCallback      = "지금은 답장을 보낼 수 없는 설정이에요.\n관리자에게 알려주세요 🙏"
	MsgNoCredential    = "서버 설정(API 키)이 아직 안 되어 있어요.\n관리자에게 알려주세요 🙏"
	MsgBadRequest      = "요청을 읽지 못했어요.\n잠시 후 다시 보내주세요 🙏"
	MsgEmptySummary    = "요약 결과가 비어 있어요.\n더 선명한 사진으로 다시 보내주세요 📷"
	MsgOversize        = "사진 용량이 너무 커요.\n조금 작게 찍어서 다시 보내주세요 📷"
	MsgPacing          = "지금 다른 사진을 읽고 있어요.\n잠시 뒤에 다시 보내주세요 🙏"
	MsgCooldown        = "오늘 요약 사용량을 모두 썼어요.\n내일 다시 보내주세요 🙏"
	MsgTimedOut        = "요약하는 데 시간이 너무 오래 걸렸어요.\n잠시 후 다시 보내주세요 ⏳"
	MsgTransient       = "일시적인 오류가 났어요.\n잠시 후 다시 보내주세요 🙏"
	msgPacingFormat    = "지금 다른 사진을 읽고 있어요.\n%d초쯤 뒤에 다시 보내주세요 🙏"
	msgThrottledFormat = "요청이 몰려서 잠시 쉬는 중이에요.\n%d초 뒤에 다시 보내주세요 🙏"
)

// Message maps an outcome to the single text sent through the callback.
// The result is never empty.
func Message(o Outcome) string {
	switch o.Kind {
	case OutcomeDelivered:
		if o.Text == "" {
			return MsgEmptySummary
		}
		return o.Text
	case OutcomeRejectedPacing:
		if o.WaitHint <= 0 {
			return MsgPacing
		}
		return fmt.Sprintf(msgPacingFormat, waitSeconds(o.WaitHint))
	case OutcomeRejectedCooldown:
		return MsgCooldown
	case OutcomeRejectedOversize:
		return MsgOversize
	case OutcomeTimedOut:
		return MsgTimedOut
	case OutcomeUpstreamThrottled:
		if o.Cooldown {
			return MsgCooldown
		}
		return fmt.Sprintf(msgThrottledFormat, waitSeconds(o.WaitHint))
	default:
		return MsgTransient
	}
}

func waitSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
