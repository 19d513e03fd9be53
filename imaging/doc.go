// Package imaging post-processes generated emoticon images.
//
// A Processor turns a source image into the three variants a sticker set
// ships with: the main image carrying the keyword label (and, for preview
// sets, a diagonal watermark), a 120x120 aspect-preserving thumbnail and a
// 50x50 stretched icon. All outputs are PNG data URLs.
//
// # Processing
//
//	p := imaging.New(imaging.Config{})
//	res := p.Process(ctx, imageURL, "开心", true)
//
// Process never fails. Unreachable sources are replaced by a "加载失败"
// placeholder before rendering, and any rendering failure produces a set of
// solid placeholders labelled with the keyword.
//
// # Fonts
//
// Text is drawn with the embedded Go Bold typeface. It has no CJK glyphs, so
// deployments that label Chinese keywords should pass a CJK-capable TrueType
// or OpenType font in Config.FontData.
package imaging
