package bundle

import (
	"fmt"
	"strings"
)

func keywordList(pkg Package) string {
	lines := make([]string, len(pkg.Emoticons))
	for i, e := range pkg.Emoticons {
		lines[i] = fmt.Sprintf("%d. %s", i+1, e.Keyword)
	}

	return strings.Join(lines, "\n")
}

func readme(pkg Package) string {
	switch pkg.Edition {
	case EditionPremium:
		return fmt.Sprintf(`# %s - 高级版

这是一个由AI生成的高清无水印表情包集合，包含%d个表情。

## 文件结构

- main/ - 主图 - 高清无水印
- thumb/ - 缩略图 (120x120px) - 高清无水印
- icon/ - 图标 (50x50px) - 高清无水印
- banner/ - 横幅图 (750x400px) - 专业版横幅

## 高级版特性

✅ 高清无水印图片
✅ 专业级图片质量
✅ 完整微信表情包格式
✅ 商用授权许可

## 使用说明

1. 所有图片均为高清无水印版本
2. 文件格式为PNG，支持透明背景
3. 完全符合微信表情包平台上传要求
4. 可用于商业用途

## 关键词列表

%s

---
由AI表情包生成器专业版创建
感谢您的支持！
`, pkg.Title, len(pkg.Emoticons), keywordList(pkg))

	case EditionSimple:
		keywords := make([]string, len(pkg.Emoticons))
		for i, e := range pkg.Emoticons {
			keywords[i] = e.Keyword
		}

		return fmt.Sprintf(`
%s - 简单版本
===================

包含内容：
- %d 张表情包主图 (PNG格式)

文件命名规则：
- 01_关键词.png, 02_关键词.png, ...

使用说明：
- 直接使用图片文件
- 适用于各种聊天软件和社交平台

生成时间：%s
关键词：%s
`, pkg.Title, len(pkg.Emoticons), pkg.Created.Format("2006/1/2 15:04:05"), strings.Join(keywords, "、"))

	default:
		return fmt.Sprintf(`# %s

这是一个由AI生成的表情包集合，包含%d个表情。

## 文件结构

- main/ - 主图
- thumb/ - 缩略图 (120x120px)
- icon/ - 图标 (50x50px)
- banner/ - 横幅图 (750x400px)

## 使用说明

1. 本包为水印预览版本
2. 如需无水印高清版本，请购买高级版本
3. 文件格式均为PNG，支持透明背景
4. 适用于微信表情包平台上传

## 关键词列表

%s

---
由AI表情包生成器创建
`, pkg.Title, len(pkg.Emoticons), keywordList(pkg))
	}
}
