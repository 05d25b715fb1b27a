package util

import (
	"fmt"
	"regexp"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
}

// ExtractYouTubeVideoID 支持 watch?v=、youtu.be/ 和 embed/ 三种链接
func ExtractYouTubeVideoID(url string) (string, bool) {
	for _, p := range youtubePatterns {
		if m := p.FindStringSubmatch(url); len(m) > 1 && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

func YouTubeThumbnail(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

func YouTubeEmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}
