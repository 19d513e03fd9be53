package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vitalvas/stickergen/imaging"
	"github.com/vitalvas/stickergen/provider"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RecommendedCount is the advertised size of a full set.
const RecommendedCount = 16

const (
	failedImageSize = 512
	failedImageBG   = "#ff6b6b"
	failedImageFG   = "white"
	failedMessage   = "图片生成失败"
)

// Presets are the built-in keyword sets.
var Presets = map[string][]string{
	"basic":    {"开心", "难过", "惊讶", "思考", "疑惑", "加油", "休息", "吃东西"},
	"extended": {"开心", "难过", "惊讶", "思考", "疑惑", "加油", "休息", "吃东西", "玩耍", "生气", "害羞", "委屈", "兴奋", "无聊", "感动", "搞笑"},
	"safe":     {"微笑", "快乐", "惊喜", "思考", "疑惑", "加油", "休息", "吃东西", "玩耍", "开心", "害羞", "委屈", "兴奋", "无聊", "感动", "搞笑"},
}

var presetNotes = map[string]string{
	"basic":    "适合快速测试，8个基础表情",
	"extended": "完整表情包，16个丰富表情",
	"safe":     "内容安全优化，通过率更高",
}

var (
	styles    = []string{"cartoon", "realistic", "anime", "cute"}
	sizes     = []string{"small", "medium", "large"}
	qualities = []string{"draft", "standard", "high"}
)

var errBadRequest = errors.New("bad request")

// GenerateOptions are the optional knobs of a generation request.
type GenerateOptions struct {
	Style    string `json:"style,omitempty"`
	Size     string `json:"size,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
	Quality  string `json:"quality,omitempty"`
}

// GenerateRequest is the body of POST /api/generate-emoticons and the first
// message of the stream.
type GenerateRequest struct {
	SubjectDescription string          `json:"subjectDescription"`
	Keywords           []string        `json:"keywords"`
	Options            GenerateOptions `json:"options"`
}

// EmoticonResult is one generated keyword.
type EmoticonResult struct {
	ID           int    `json:"id"`
	Keyword      string `json:"keyword"`
	ImageURL     string `json:"imageUrl"`
	ImageData    string `json:"imageData,omitempty"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

// Statistics summarises a batch.
type Statistics struct {
	Total       int `json:"total"`
	Success     int `json:"success"`
	Failed      int `json:"failed"`
	SuccessRate int `json:"successRate"`
}

// GenerateMetadata echoes the request.
type GenerateMetadata struct {
	SubjectDescription string          `json:"subjectDescription"`
	TotalKeywords      int             `json:"totalKeywords"`
	Generated          int             `json:"generated"`
	APIMode            string          `json:"apiMode"`
	Options            GenerateOptions `json:"options"`
	Timestamp          time.Time       `json:"timestamp"`
}

// GenerateResponse is the body of a completed batch.
type GenerateResponse struct {
	Success    bool             `json:"success"`
	Emoticons  []EmoticonResult `json:"emoticons"`
	Statistics Statistics       `json:"statistics"`
	Metadata   GenerateMetadata `json:"metadata"`
}

// Stream message types.
const (
	MessageResult  = "result"
	MessageSummary = "summary"
	MessageError   = "error"
)

// StreamMessage is one websocket message of the generation stream.
type StreamMessage struct {
	Type      string          `json:"type"`
	Emoticon  *EmoticonResult `json:"emoticon,omitempty"`
	Completed int             `json:"completed,omitempty"`
	Total     int             `json:"total,omitempty"`

	Statistics *Statistics       `json:"statistics,omitempty"`
	Metadata   *GenerateMetadata `json:"metadata,omitempty"`
	Error      *ErrorResponse    `json:"error,omitempty"`
}

// normalize validates req in place and returns the keywords to generate.
func (s *Server) normalize(req *GenerateRequest) ([]string, error) {
	req.SubjectDescription = strings.TrimSpace(req.SubjectDescription)
	if req.SubjectDescription == "" {
		return nil, fmt.Errorf("%w: 请提供主体描述", errBadRequest)
	}

	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	limits := s.cfg.Limits

	switch {
	case len(keywords) == 0:
		return nil, fmt.Errorf("%w: 请提供关键词", errBadRequest)
	case len(keywords) > limits.MaxKeywords:
		return nil, fmt.Errorf("%w: 关键词数量不能超过%d个，当前：%d个", errBadRequest, limits.MaxKeywords, len(keywords))
	case len(keywords) < limits.MinKeywords:
		return nil, fmt.Errorf("%w: 至少需要%d个关键词", errBadRequest, limits.MinKeywords)
	}

	opts := &req.Options
	if err := defaultChoice(&opts.Style, "cartoon", styles, "style"); err != nil {
		return nil, err
	}

	if err := defaultChoice(&opts.Size, "medium", sizes, "size"); err != nil {
		return nil, err
	}

	if err := defaultChoice(&opts.Quality, "standard", qualities, "quality"); err != nil {
		return nil, err
	}

	if opts.Quantity <= 0 || opts.Quantity > len(keywords) {
		opts.Quantity = len(keywords)
	}

	req.Keywords = keywords

	return keywords[:opts.Quantity], nil
}

func defaultChoice(v *string, def string, allowed []string, name string) error {
	if *v == "" {
		*v = def
		return nil
	}

	if !slices.Contains(allowed, *v) {
		return fmt.Errorf("%w: unknown %s %q", errBadRequest, name, *v)
	}

	return nil
}

// emoticonResult converts a batch result. Failures get a remote placeholder
// image.
func (s *Server) emoticonResult(res provider.BatchResult) EmoticonResult {
	out := EmoticonResult{
		ID:        res.Index + 1,
		Keyword:   res.Keyword,
		RequestID: res.RequestID,
	}

	if res.OK() {
		out.ImageURL = res.ImageData
		out.ImageData = res.ImageData
		out.Status = StatusSuccess

		return out
	}

	out.ImageURL = imaging.RemotePlaceholderURL(s.cfg.Processing.RemoteBase,
		failedImageSize, failedImageSize, failedImageBG, failedImageFG, res.Keyword)
	out.Status = StatusFailed
	out.ErrorMessage = failedMessage

	if provider.IsContentPolicy(res.Err) {
		out.ErrorMessage = provider.Reason(res.Err)
	}

	return out
}

func statistics(results []EmoticonResult) Statistics {
	st := Statistics{Total: len(results)}

	for _, r := range results {
		if r.Status == StatusSuccess {
			st.Success++
		} else {
			st.Failed++
		}
	}

	if st.Total > 0 {
		st.SuccessRate = int(math.Round(float64(st.Success) / float64(st.Total) * 100))
	}

	return st
}

func (s *Server) metadata(req GenerateRequest) GenerateMetadata {
	return GenerateMetadata{
		SubjectDescription: req.SubjectDescription,
		TotalKeywords:      len(req.Keywords),
		Generated:          req.Options.Quantity,
		APIMode:            s.apiMode(),
		Options:            req.Options,
		Timestamp:          s.clock().UTC(),
	}
}

func (s *Server) apiMode() string {
	if s.cfg.UseRealAPI {
		return "real"
	}

	return "disabled"
}

func (s *Server) handleGenerateInfo(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "presets":
		writeJSON(w, http.StatusOK, map[string]any{
			"presets":         Presets,
			"recommendations": presetNotes,
		})

	case "config":
		writeJSON(w, http.StatusOK, map[string]any{
			"limits": map[string]int{
				"maxKeywords":      s.cfg.Limits.MaxKeywords,
				"minKeywords":      s.cfg.Limits.MinKeywords,
				"recommendedCount": RecommendedCount,
			},
			"styles":    styles,
			"sizes":     sizes,
			"qualities": qualities,
		})

	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"apiMode":    s.apiMode(),
			"configured": s.generatorErr == nil,
			"version":    Version,
			"endpoints": map[string]string{
				"POST /":               "生成表情包",
				"GET /?action=presets": "获取预设关键词",
				"GET /?action=config":  "获取配置信息",
				"GET /stream":          "流式生成进度",
			},
			"timestamp": s.clock().UTC(),
		})
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := bindJSON(r, &req); err != nil {
		writeBindError(w, err)
		return
	}

	keywords, err := s.normalize(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	gen, err := s.generatorFor(r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, err.Error())
		return
	}

	results := gen.GenerateBatchFunc(r.Context(), req.SubjectDescription, keywords, nil)

	emoticons := make([]EmoticonResult, len(results))
	for i, res := range results {
		emoticons[i] = s.emoticonResult(res)
	}

	if err := r.Context().Err(); err != nil {
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success:    true,
		Emoticons:  emoticons,
		Statistics: statistics(emoticons),
		Metadata:   s.metadata(req),
	})
}

// handleGenerateStream reads one GenerateRequest from the websocket, sends
// a result message per keyword as it completes and ends with a summary.
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.streamError(conn, codeBadRequest, "invalid request: "+err.Error())
		return
	}

	keywords, err := s.normalize(&req)
	if err != nil {
		s.streamError(conn, codeBadRequest, err.Error())
		return
	}

	gen, err := s.generatorFor(r)
	if err != nil {
		s.streamError(conn, codeUnavailable, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)

	// A read error means the client went away.
	go func() {
		defer wg.Done()
		defer cancel()

		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	completed := 0
	results := gen.GenerateBatchFunc(ctx, req.SubjectDescription, keywords, func(res provider.BatchResult) {
		completed++

		e := s.emoticonResult(res)
		if err := conn.WriteJSON(StreamMessage{
			Type:      MessageResult,
			Emoticon:  &e,
			Completed: completed,
			Total:     len(keywords),
		}); err != nil {
			cancel()
		}
	})

	if ctx.Err() == nil {
		emoticons := make([]EmoticonResult, len(results))
		for i, res := range results {
			emoticons[i] = s.emoticonResult(res)
		}

		st := statistics(emoticons)
		md := s.metadata(req)

		if err := conn.WriteJSON(StreamMessage{Type: MessageSummary, Statistics: &st, Metadata: &md}); err == nil {
			s.closeStream(conn, websocket.CloseNormalClosure, "")
		}
	}

	conn.Close()
	wg.Wait()
}

func (s *Server) streamError(conn *websocket.Conn, code, message string) {
	if err := conn.WriteJSON(StreamMessage{Type: MessageError, Error: &ErrorResponse{Code: code, Message: message}}); err != nil {
		return
	}

	s.closeStream(conn, websocket.ClosePolicyViolation, code)
}

func (s *Server) closeStream(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}
