package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// ListingFile wraps an opened session listing identity.
type ListingFile struct {
	handle *orb.RemoteHandle
}

// NewListingFile wraps o's listing identity.
func NewListingFile(o *orb.ORB, identity string) *ListingFile {
	return &ListingFile{handle: orb.NewRemoteHandle(o, identity)}
}

// Identity returns the listing file's remote identity.
func (l *ListingFile) Identity() string { return l.handle.Identity() }

// GetPageCount returns the number of pages currently in the listing.
func (l *ListingFile) GetPageCount() (int64, error) {
	buf := l.handle.Request("getPageCount")
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return 0, err
	}
	defer l.handle.Release(reply)
	return reply.ReadI64()
}

// Page is one page of listing output, as returned by GetPage.
type Page struct {
	Exists      bool
	GeometryIdx int64
	Lines       []string
}

// GetPage fetches the given page number.
func (l *ListingFile) GetPage(pagenum int64) (Page, error) {
	buf := l.handle.Request("getPage")
	buf.WriteI64(pagenum)
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return Page{}, err
	}
	defer l.handle.Release(reply)

	exists, err := reply.ReadBool()
	if err != nil {
		return Page{}, err
	}
	geometryIdx, err := reply.ReadI64()
	if err != nil {
		return Page{}, err
	}
	lineCount, err := reply.ReadI32()
	if err != nil {
		return Page{}, err
	}
	lines := make([]string, 0, lineCount)
	for i := int32(0); i < lineCount; i++ {
		text, err := reply.ReadString()
		if err != nil {
			return Page{}, err
		}
		lines = append(lines, text)
	}
	return Page{Exists: exists, GeometryIdx: geometryIdx, Lines: lines}, nil
}
