package provider

import "strings"

const (
	promptStyle       = "卡通动画风格, 萌系设计, 简洁背景"
	promptQuality     = "高品质插画, 色彩鲜明, 细节精美"
	promptRestriction = "纯图像设计, 表情符号风格"
)

// BuildPrompt returns the generation prompt for subject showing keyword.
func BuildPrompt(subject, keyword string) string {
	return strings.Join([]string{
		strings.TrimSpace(subject) + "做出" + strings.TrimSpace(keyword) + "的可爱表情",
		promptStyle,
		promptQuality,
		promptRestriction,
	}, ", ")
}
