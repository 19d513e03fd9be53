package provider

// RandomSeed asks the provider to pick the seed.
const RandomSeed = -1

// ImageRequest is a single text-to-image request.
type ImageRequest struct {
	Prompt string
	// Seed is sent as given; use RandomSeed to let the provider choose.
	Seed   int64
	Width  int
	Height int
}

// LogoInfo controls the provider's visible watermark.
type LogoInfo struct {
	AddLogo         bool   `json:"add_logo"`
	Position        int    `json:"position"`
	Language        int    `json:"language"`
	Opacity         int    `json:"opacity"`
	LogoTextContent string `json:"logo_text_content"`
}

// AIGCMeta is the implicit content-provenance metadata.
type AIGCMeta struct {
	ContentProducer   string `json:"content_producer"`
	ProducerID        string `json:"producer_id"`
	ContentPropagator string `json:"content_propagator"`
	PropagateID       string `json:"propagate_id"`
}

type generateBody struct {
	ReqKey    string   `json:"req_key"`
	Prompt    string   `json:"prompt"`
	Seed      int64    `json:"seed"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	UsePreLLM bool     `json:"use_pre_llm"`
	UseSR     bool     `json:"use_sr"`
	ReturnURL bool     `json:"return_url"`
	LogoInfo  LogoInfo `json:"logo_info"`
	AIGCMeta  AIGCMeta `json:"aigc_meta"`
}

var (
	defaultLogoInfo = LogoInfo{
		Opacity:         1,
		LogoTextContent: "AI生成",
	}

	defaultAIGCMeta = AIGCMeta{
		ContentProducer:   "emoticon-generator",
		ProducerID:        "emoticon-app",
		ContentPropagator: "web-app",
		PropagateID:       "web-emoticon-generator",
	}
)

// AlgorithmBaseResp is the model's own status.
type AlgorithmBaseResp struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// ImageData is the payload of a successful response.
type ImageData struct {
	AlgorithmBaseResp AlgorithmBaseResp `json:"algorithm_base_resp"`
	BinaryDataBase64  []string          `json:"binary_data_base64"`
	ImageURLs         []string          `json:"image_urls"`
	LLMResult         string            `json:"llm_result"`
	RephraserResult   string            `json:"rephraser_result"`
	RequestID         string            `json:"request_id"`
}

// ImageResponse is the visual API response.
type ImageResponse struct {
	Code        int       `json:"code"`
	Message     string    `json:"message"`
	Status      int       `json:"status"`
	RequestID   string    `json:"request_id"`
	TimeElapsed string    `json:"time_elapsed"`
	Data        ImageData `json:"data"`

	// ResponseMetadata carries gateway errors such as signature failures.
	ResponseMetadata *ResponseMetadata `json:"ResponseMetadata,omitempty"`
}

// ResponseMetadata is the gateway envelope of the OpenAPI.
type ResponseMetadata struct {
	RequestID string        `json:"RequestId"`
	Action    string        `json:"Action"`
	Version   string        `json:"Version"`
	Service   string        `json:"Service"`
	Region    string        `json:"Region"`
	Error     *GatewayError `json:"Error,omitempty"`
}

// GatewayError is an error reported by the API gateway.
type GatewayError struct {
	Code    string `json:"Code"`
	Message string `json:"Message"`
}

// HasImage reports whether the response carries at least one image.
func (r *ImageResponse) HasImage() bool {
	return len(r.Data.ImageURLs) > 0 || len(r.Data.BinaryDataBase64) > 0
}
