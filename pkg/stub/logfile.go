package stub

import (
	"github.com/sol-eng/wrmiorb/pkg/orb"
)

// LogLine is one line of a session's log output.
type LogLine struct {
	Type int32 // log line category tag, peer-defined
	CC   int32 // carriage-control code
	Text string
}

// LogFile wraps an opened session log identity.
type LogFile struct {
	handle *orb.RemoteHandle
}

// NewLogFile wraps o's log identity.
func NewLogFile(o *orb.ORB, identity string) *LogFile {
	return &LogFile{handle: orb.NewRemoteHandle(o, identity)}
}

// Identity returns the log file's remote identity.
func (l *LogFile) Identity() string { return l.handle.Identity() }

// GetLineCount returns the number of lines currently in the log.
func (l *LogFile) GetLineCount() (int64, error) {
	buf := l.handle.Request("getLineCount")
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return 0, err
	}
	defer l.handle.Release(reply)
	return reply.ReadI64()
}

// GetLines fetches up to max lines starting at first, returning the
// peer's result code and the lines it produced.
func (l *LogFile) GetLines(first int64, max int32) (result int32, lines []LogLine, err error) {
	buf := l.handle.Request("getLines")
	buf.WriteI64(first)
	buf.WriteI32(max)
	reply, err := l.handle.Invoke(buf)
	if err != nil {
		return 0, nil, err
	}
	defer l.handle.Release(reply)

	result, err = reply.ReadI32()
	if err != nil {
		return 0, nil, err
	}
	count, err := reply.ReadI32()
	if err != nil {
		return 0, nil, err
	}
	lines = make([]LogLine, 0, count)
	for i := int32(0); i < count; i++ {
		typ, err := reply.ReadU8()
		if err != nil {
			return 0, nil, err
		}
		cc, err := reply.ReadU8()
		if err != nil {
			return 0, nil, err
		}
		text, err := reply.ReadString()
		if err != nil {
			return 0, nil, err
		}
		lines = append(lines, LogLine{Type: int32(typ), CC: int32(cc), Text: text})
	}
	return result, lines, nil
}
