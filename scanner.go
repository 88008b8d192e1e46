package newline

import "bytes"

const delims = "\r\n"

func isDelim(b byte) bool {
	return b == '\r' || b == '\n'
}

// Scanner finds line boundaries terminated by any of "\n", "\r", "\r\n" or "\n\r". Its only
// state is a terminator byte seen at the very end of a Fill whose meaning depends on the next
// byte. The zero value is ready to use. A Scanner must only be used with one Source.
type Scanner struct {
	pending    byte
	hasPending bool
}

func (s *Scanner) pendingDelim() (byte, bool) {
	return s.pending, s.hasPending
}

// AppendLine appends the next line from src to dst, without its terminator, and returns the
// extended buffer along with the number of bytes consumed from src including the terminator.
// It returns 0 consumed at the end of src. Interrupted fills are retried, any other error from
// src is returned as is.
func (s *Scanner) AppendLine(dst []byte, src Source) ([]byte, int, error) {
	var read int
	for {
		available, err := src.Fill()
		if err != nil {
			if isInterrupted(err) {
				continue
			}
			return dst, read, err
		}
		var used int
		var done bool
		switch {
		case s.hasPending:
			// resolve "\r" or "\n" from the previous fill. only "\r\n" and "\n\r" join into one
			// terminator. "\r\r" and "\n\n" are two.
			if len(available) > 0 && isDelim(available[0]) && available[0] != s.pending {
				used = 1
			}
			s.hasPending = false
			done = true
		default:
			idx := bytes.IndexAny(available, delims)
			if idx < 0 {
				dst = append(dst, available...)
				used = len(available)
				break
			}
			dst = append(dst, available[:idx]...)
			switch {
			case idx+1 == len(available):
				s.pending, s.hasPending = available[idx], true
				used = idx + 1
			case isDelim(available[idx+1]) && available[idx+1] != available[idx]:
				used = idx + 2
				done = true
			default:
				used = idx + 1
				done = true
			}
		}
		src.Consume(used)
		read += used
		if done || used == 0 {
			return dst, read, nil
		}
	}
}
