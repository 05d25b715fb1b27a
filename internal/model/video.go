package model

type VideoSourceType string

const (
	VideoYouTube VideoSourceType = "youtube"
	VideoServer  VideoSourceType = "server"
)

// Video 目标关联的视频资源，YouTube 链接或服务器上传
// swagger:model Video
type Video struct {
	ID        string          `json:"id"`
	Type      VideoSourceType `json:"type"`
	URL       string          `json:"url"`
	Title     string          `json:"title,omitempty"`
	Duration  int             `json:"duration,omitempty"` // 秒
	Thumbnail string          `json:"thumbnail,omitempty"`
}

func (v *Video) IsYouTube() bool {
	return v != nil && v.Type == VideoYouTube
}

func (v *Video) IsServer() bool {
	return v != nil && v.Type == VideoServer
}
