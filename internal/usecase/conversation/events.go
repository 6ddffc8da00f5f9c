package conversation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/nearby/internal/domain/entity"
	"github.com/kailas-cloud/nearby/internal/domain/result"
	"github.com/kailas-cloud/nearby/internal/usecase/search"
	"github.com/kailas-cloud/nearby/internal/usecase/searchcache"
)

// Results is the bundle sent to the caller after a search.
type Results struct {
	result.Set
	Meta  search.Meta        `json:"meta"`
	Share *searchcache.Saved `json:"share,omitempty"`
}

// Notice codes.
const (
	NoticeTimeout         = "timeout"
	NoticeIterationLimit  = "iteration_limit"
	NoticeError           = "error"
	NoticeUnknownFunction = "unknown_function"
)

// Notice is a user-visible loop failure.
type Notice struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var noticeText = map[string]string{
	NoticeTimeout: "The assistant took too long to answer. Please try again.\n" +
		"استغرق المساعد وقتاً طويلاً للرد. يرجى المحاولة مرة أخرى.",
	NoticeIterationLimit: "This request needed too many steps. Please rephrase it.\n" +
		"تطلب هذا الطلب خطوات كثيرة. يرجى إعادة صياغته.",
	NoticeError: "Something went wrong. Please try again.\n" +
		"حدث خطأ ما. يرجى المحاولة مرة أخرى.",
	NoticeUnknownFunction: "I could not handle that request.\n" +
		"لم أتمكن من معالجة هذا الطلب.",
}

func newNotice(code string) Notice {
	return Notice{Code: code, Message: noticeText[code]}
}

var domainNames = map[entity.Domain][2]string{
	entity.Providers: {"providers", "مقدمي خدمات"},
	entity.Services:  {"services", "خدمات"},
	entity.Shops:     {"shops", "متاجر"},
	entity.Products:  {"products", "منتجات"},
}

// closingReply summarizes a result set in English and Arabic.
func closingReply(s result.Summary) string {
	if s.Total == 0 {
		return fmt.Sprintf("I found no results for %q. Try different words or a wider area.\n"+
			"لم أجد نتائج لـ %q. جرّب كلمات أخرى أو منطقة أوسع.", s.Query, s.Query)
	}

	var en, ar []string
	for _, d := range entity.All {
		n := s.Counts[d]
		if n == 0 {
			continue
		}
		names := domainNames[d]
		en = append(en, fmt.Sprintf("%d %s", n, names[0]))
		ar = append(ar, fmt.Sprintf("%d %s", n, names[1]))
	}
	noun := "results"
	if s.Total == 1 {
		noun = "result"
	}
	return fmt.Sprintf("I found %d %s for %q (%s).\nوجدت %d نتيجة لـ %q (%s).",
		s.Total, noun, s.Query, strings.Join(en, ", "),
		s.Total, s.Query, strings.Join(ar, "، "))
}
