package service

import (
	"net/url"
	"regexp"
	"strings"
)

// LinkSuffix 占位文件后缀.
const LinkSuffix = ".link"

// urlBody URL 中允许出现的字符，遇到空白、引号和尖括号即截断.
const urlBody = `[^\s"'<>]`

var (
	// 1. 显式 external: 前缀
	externalPattern = regexp.MustCompile(`(?i)external:\s*(\S+)`)

	// 2. 已知视频站点：YouTube、Vimeo、Google Drive，按出现顺序取第一个
	providerPattern = regexp.MustCompile(`(?i)https?://(?:` +
		`(?:www\.|m\.)?youtube(?:-nocookie)?\.com/(?:watch\?` + urlBody + `*v=|embed/|shorts/)[\w-]+` +
		`|youtu\.be/[\w-]+` +
		`|(?:www\.|player\.)?vimeo\.com/` + urlBody + `+` +
		`|drive\.google\.com/` + urlBody + `+` +
		`)` + urlBody + `*`)

	// 3. 直链媒体文件
	directMediaPattern = regexp.MustCompile(`(?i)https?://` + urlBody + `+?\.(?:mp4|webm|ogg|mp3|wav)\b(?:[?#]` + urlBody + `*)?`)

	// 4. 任意 http(s) URL
	anyURLPattern = regexp.MustCompile(`(?i)https?://` + urlBody + `+`)

	// 已知的错误页/跳转页内容，不能当作外链
	rejectPattern = regexp.MustCompile(`(?i)error_204|jserror`)

	// XML/XMP 命名空间所在的主机，这些 URI 只是标识符，不是外链
	namespaceHosts = map[string]struct{}{
		"www.w3.org":   {},
		"w3.org":       {},
		"ns.adobe.com": {},
		"purl.org":     {},
	}

	youtubeIDPattern = regexp.MustCompile(`(?i)(?:youtube(?:-nocookie)?\.com/(?:watch\?(?:[^\s#]*&)?v=|embed/|shorts/|v/)|youtu\.be/)([\w-]+)`)
	vimeoIDPattern   = regexp.MustCompile(`(?i)vimeo\.com/(?:video/|channels/[\w-]+/)?(\d+)`)
	driveIDPattern   = regexp.MustCompile(`(?i)drive\.google\.com/(?:file/d/|open\?id=|uc\?(?:[^\s#]*&)?id=)([\w-]+)`)
)

// ExtractURL 从占位文件文本中提取外链.
//
// 按类别优先级匹配：external: 前缀、视频站点、直链媒体、任意 URL.
// 命中的是优先级最高的类别，而不是文本中第一个像 URL 的子串.
// 候选会去掉包裹的引号和结尾标点，命中错误页特征或 XML 命名空间的候选被跳过.
func ExtractURL(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	for _, m := range externalPattern.FindAllStringSubmatch(text, -1) {
		if u, ok := acceptURL(m[1]); ok {
			return u, true
		}
	}

	for _, re := range []*regexp.Regexp{providerPattern, directMediaPattern, anyURLPattern} {
		for _, m := range re.FindAllString(text, -1) {
			if u, ok := acceptURL(m); ok {
				return u, true
			}
		}
	}

	return "", false
}

// cleanURL 去掉空白、包裹引号和结尾的句读符号.
func cleanURL(s string) string {
	s = strings.TrimSpace(s)

	for {
		prev := s
		s = strings.Trim(s, "\"'`")
		s = strings.TrimRight(s, ")].,;:")

		if s == prev {
			return s
		}
	}
}

func acceptURL(candidate string) (string, bool) {
	u := cleanURL(candidate)
	if u == "" || rejectPattern.MatchString(u) {
		return "", false
	}

	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "", false
	}

	if _, ok := namespaceHosts[strings.ToLower(parsed.Hostname())]; ok {
		return "", false
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return u, true
	default:
		return "", false
	}
}

// NormalizeVideoURL 把各种 YouTube 链接统一为 https://www.youtube.com/watch?v=<id>，其他 URL 原样返回.
func NormalizeVideoURL(raw string) string {
	if m := youtubeIDPattern.FindStringSubmatch(raw); m != nil {
		return "https://www.youtube.com/watch?v=" + m[1]
	}

	return raw
}

// EmbedURL 返回视频站点的内嵌播放地址.
func EmbedURL(raw string) (string, bool) {
	if m := youtubeIDPattern.FindStringSubmatch(raw); m != nil {
		return "https://www.youtube.com/embed/" + m[1], true
	}

	if m := vimeoIDPattern.FindStringSubmatch(raw); m != nil {
		return "https://player.vimeo.com/video/" + m[1], true
	}

	if m := driveIDPattern.FindStringSubmatch(raw); m != nil {
		return "https://drive.google.com/file/d/" + m[1] + "/preview", true
	}

	return "", false
}

// IsLinkName 是否为 .link 占位文件（大小写不敏感）.
func IsLinkName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), LinkSuffix)
}

// TrimLinkSuffix 去掉 .link 后缀.
func TrimLinkSuffix(name string) string {
	if IsLinkName(name) {
		return name[:len(name)-len(LinkSuffix)]
	}

	return name
}
