// Error taxonomy for the download pipeline. Article-level failures
// carry a kind so the completion summary can explain what went wrong;
// image failures stay attached to their URL and never fail an article.
package main

import "fmt"

// ErrorKind classifies an article-level failure.
type ErrorKind int

const (
	KindEpub ErrorKind = iota
	KindHTTP
	KindIO
	KindUTF8
	KindReadability
)

func (k ErrorKind) String() string {
	switch k {
	case KindEpub:
		return "EpubError"
	case KindHTTP:
		return "HTTPError"
	case KindIO:
		return "IOError"
	case KindUTF8:
		return "UTF8Error"
	case KindReadability:
		return "ReadabilityError"
	}
	return "Error"
}

// Error is an article-level failure. ArticleSource is the URL the
// article came from, when known.
type Error struct {
	Kind          ErrorKind
	Message       string
	ArticleSource string
	cause         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s]: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), cause: err}
}

// ImgError is a failure to download one image. The enclosing article
// is still emitted and counted as a partial download.
type ImgError struct {
	URL string
	Err error
}

func (e *ImgError) Error() string {
	return fmt.Sprintf("[ImgError] %s: %v", e.URL, e.Err)
}

func (e *ImgError) Unwrap() error { return e.Err }

// CliError is a configuration problem, fatal at startup.
type CliError struct {
	Message string
}

func (e *CliError) Error() string {
	return fmt.Sprintf("[CliError]: %s", e.Message)
}
