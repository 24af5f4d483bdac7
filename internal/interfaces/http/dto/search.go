package dto

// TextSearchRequest 文本搜索请求，limit 合法区间 [1,100]，缺省为 5
type TextSearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit" binding:"omitempty,min=1,max=100"`
}

// ImageSearchRequest 图片搜索请求，ImageBase64 为 base64 编码的图片数据，
// Query 为可选的补充描述文本
type ImageSearchRequest struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	Query       string `json:"query"`
	MimeType    string `json:"mime_type"`
	Limit       int    `json:"limit" binding:"omitempty,min=1,max=100"`
}
