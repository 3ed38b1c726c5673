package readability

import "regexp"

// Pattern bank compiled once at startup. All patterns run against short
// attribute strings, so none of them need to be particularly fast.
var (
	bylineRe   = regexp.MustCompile(`(?i)byline|author|dateline|writtenby|p-author`)
	positiveRe = regexp.MustCompile(`(?i)article|body|content|entry|hentry|h-entry|main|page|pagination|post|text|blog|story`)
	negativeRe = regexp.MustCompile(`(?i)hidden|\bhid\b|banner|combx|comment|com-|contact|foot|footer|footnote|gdpr|masthead|media|meta|outbrain|promo|related|scroll|share|shoutbox|sidebar|skyscraper|sponsor|shopping|tags|tool|widget`)
	unlikelyRe = regexp.MustCompile(`(?i)-ad-|ai2html|banner|breadcrumbs|combx|comment|community|cover-wrap|disqus|extra|footer|gdpr|header|legends|menu|related|remark|replies|rss|shoutbox|sidebar|skyscraper|social|sponsor|supplemental|ad-break|agegate|pagination|pager|popup|yom-remote`)
	okMaybeRe  = regexp.MustCompile(`(?i)and|article|body|column|content|main|shadow`)
	videosRe   = regexp.MustCompile(`(?i)//(www\.)?((dailymotion|youtube|youtube-nocookie|player\.vimeo|v\.qq)\.com|(archive|upload\.wikimedia)\.org|player\.twitch\.tv)`)
	shareRe    = regexp.MustCompile(`(?i)(\b|_)(share|sharedaddy)(\b|_)`)

	imgExtRe     = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)`)
	srcsetLazyRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp)\s+\d`)
	srcLazyRe    = regexp.MustCompile(`(?i)^\s*\S+\.(jpg|jpeg|png|webp)\S*\s*$`)
	b64DataURLRe = regexp.MustCompile(`(?i)^data:\s*([^\s;,]+)\s*;\s*base64\s*,`)

	// A sentence-ish text node: ends in ". " or "." at the end of the string.
	sentenceEndRe = regexp.MustCompile(`\.( |$)`)

	normalizeWsRe = regexp.MustCompile(`\s{2,}`)

	// Title handling.
	titleSepRe             = regexp.MustCompile(` [\|\-\\/>»] `)
	titleHierarchicalSepRe = regexp.MustCompile(` [\\/>»] `)
	titleCutEndRe          = regexp.MustCompile(`(?i)(.*)[\|\-\\/>»] .*`)
	titleCutStartRe        = regexp.MustCompile(`(?i)[^\|\-\\/>»]*[\|\-\\/>»](.*)`)
	titleAnySepRe          = regexp.MustCompile(`[\|\-\\/>»]+`)

	// Metadata <meta> tag names and properties.
	metaNameRe     = regexp.MustCompile(`(?i)^\s*(?:(?:dc|dcterm|og|twitter|weibo:(?:article|webpage))\s*[\.:]\s*)?(author|creator|description|title|site_name)\s*$`)
	metaPropertyRe = regexp.MustCompile(`(?i)\s*(dc|dcterm|og|twitter)\s*:\s*(author|creator|description|title|site_name)\s*`)

	// HTML entity unescaping for metadata strings.
	htmlEscapeRe = regexp.MustCompile(`&(quot|amp|apos|lt|gt);`)
	hexEntityRe  = regexp.MustCompile(`(?i)&#(?:x([0-9a-f]{1,4})|([0-9]{1,4}));`)
)
