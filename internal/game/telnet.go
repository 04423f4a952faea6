package game

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	telnetIAC  byte = 255
	telnetDONT byte = 254
	telnetDO   byte = 253
	telnetWONT byte = 252
	telnetWILL byte = 251
	telnetSB   byte = 250
	telnetGA   byte = 249
	telnetEL   byte = 248
	telnetEC   byte = 247
	telnetAYT  byte = 246
	telnetAO   byte = 245
	telnetIP   byte = 244
	telnetBRK  byte = 243
	telnetDM   byte = 242
	telnetNOP  byte = 241
	telnetSE   byte = 240
)

const (
	telnetOptEcho       byte = 1
	telnetOptSuppressGA byte = 3
	telnetOptWindowSize byte = 31
)

const (
	defaultWidth  = 80
	defaultHeight = 25

	// maxSubnegotiation bounds the payload collected between IAC SB and IAC SE.
	maxSubnegotiation = 64
)

type telnetState uint8

const (
	telnetData telnetState = iota
	telnetCommandSeen
	telnetOptionPending
	telnetSubneg
	telnetSubnegEscape
)

// handshake lists the option offers queued for every new connection.
var handshake = []byte{
	telnetIAC, telnetWILL, telnetOptSuppressGA,
	telnetIAC, telnetWONT, telnetOptEcho,
	telnetIAC, telnetDO, telnetOptWindowSize,
}

// decode runs one received byte through the telnet state machine. Bytes that
// are not protocol traffic go to the line assembler.
func (c *Conn) decode(b byte) {
	switch c.telnet {
	case telnetData:
		if b == telnetIAC {
			c.telnet = telnetCommandSeen
			return
		}
		c.acceptByte(b)
	case telnetCommandSeen:
		c.telnet = telnetData
		switch b {
		case telnetIAC:
			c.acceptByte(b)
		case telnetWILL, telnetWONT, telnetDO, telnetDONT, telnetSB:
			c.pendingCmd = b
			c.telnet = telnetOptionPending
		case telnetEC:
			c.eraseChar()
		case telnetEL:
			c.in = c.in[:0]
		default:
			c.logger.Debug("telnet command ignored", "conn", c.name, "command", commandName(b))
		}
	case telnetOptionPending:
		if c.pendingCmd == telnetSB {
			c.subOpt = b
			c.sub = c.sub[:0]
			c.telnet = telnetSubneg
			return
		}
		c.telnet = telnetData
		c.logger.Debug("telnet negotiation", "conn", c.name,
			"command", commandName(c.pendingCmd), "option", optionName(b))
	case telnetSubneg:
		if b == telnetIAC {
			c.telnet = telnetSubnegEscape
			return
		}
		c.appendSub(b)
	case telnetSubnegEscape:
		switch b {
		case telnetSE:
			c.telnet = telnetData
			c.finishSubnegotiation()
		case telnetIAC:
			c.telnet = telnetSubneg
			c.appendSub(telnetIAC)
		default:
			c.closeWith(ReasonProtocol, fmt.Errorf("unexpected %s inside %s subnegotiation",
				commandName(b), optionName(c.subOpt)))
		}
	}
}

func (c *Conn) appendSub(b byte) {
	if len(c.sub) >= maxSubnegotiation {
		c.closeWith(ReasonProtocol, fmt.Errorf("%s subnegotiation exceeds %d bytes",
			optionName(c.subOpt), maxSubnegotiation))
		return
	}
	c.sub = append(c.sub, b)
}

func (c *Conn) finishSubnegotiation() {
	switch c.subOpt {
	case telnetOptWindowSize:
		if len(c.sub) != 4 {
			c.closeWith(ReasonProtocol, fmt.Errorf("window size payload of %d bytes", len(c.sub)))
			return
		}
		if w := int(binary.BigEndian.Uint16(c.sub[0:2])); w > 0 {
			c.width = w
		}
		if h := int(binary.BigEndian.Uint16(c.sub[2:4])); h > 0 {
			c.height = h
		}
		c.logger.Debug("terminal size", "conn", c.name, "width", c.width, "height", c.height)
	default:
		c.logger.Debug("subnegotiation discarded", "conn", c.name,
			"option", optionName(c.subOpt), "bytes", len(c.sub))
	}
	c.sub = c.sub[:0]
}

func commandName(b byte) string {
	switch b {
	case telnetIAC:
		return "IAC"
	case telnetDONT:
		return "DONT"
	case telnetDO:
		return "DO"
	case telnetWONT:
		return "WONT"
	case telnetWILL:
		return "WILL"
	case telnetSB:
		return "SB"
	case telnetGA:
		return "GA"
	case telnetEL:
		return "EL"
	case telnetEC:
		return "EC"
	case telnetAYT:
		return "AYT"
	case telnetAO:
		return "AO"
	case telnetIP:
		return "IP"
	case telnetBRK:
		return "BRK"
	case telnetDM:
		return "DM"
	case telnetNOP:
		return "NOP"
	case telnetSE:
		return "SE"
	}
	return fmt.Sprintf("cmd-%d", b)
}

func optionName(b byte) string {
	switch b {
	case telnetOptEcho:
		return "ECHO"
	case telnetOptSuppressGA:
		return "SGA"
	case telnetOptWindowSize:
		return "NAWS"
	}
	return fmt.Sprintf("opt-%d", b)
}

// charsets maps normalised names to the single-byte encodings the wire may use.
var charsets = map[string]*charmap.Charmap{
	"ISO88591":    charmap.ISO8859_1,
	"LATIN1":      charmap.ISO8859_1,
	"ISO885915":   charmap.ISO8859_15,
	"CP437":       charmap.CodePage437,
	"IBM437":      charmap.CodePage437,
	"WINDOWS1252": charmap.Windows1252,
	"CP1252":      charmap.Windows1252,
}

// LookupCharset resolves a charset name such as "latin1" or "CP-437".
func LookupCharset(name string) (*charmap.Charmap, bool) {
	cm, ok := charsets[normalizeToken(name)]
	return cm, ok
}

func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// encodeWithCharmap converts UTF-8 text to the single-byte charset, replacing
// characters it cannot represent with '?'.
func encodeWithCharmap(cm *charmap.Charmap, text []byte) []byte {
	out := make([]byte, 0, len(text))
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		text = text[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if b, ok := cm.EncodeRune(r); ok && r != utf8.RuneError {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}

// decodeWithCharmap converts single-byte input to UTF-8.
func decodeWithCharmap(cm *charmap.Charmap, data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			continue
		}
		b.WriteRune(cm.DecodeByte(c))
	}
	return b.String()
}

// translateForTelnet prepares encoded output for the wire: bare line feeds
// become CR LF and IAC bytes are doubled.
func translateForTelnet(msg []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(len(msg) + 8)
	var prev byte
	for _, b := range msg {
		switch b {
		case '\n':
			if prev != '\r' {
				buf.WriteByte('\r')
			}
			buf.WriteByte('\n')
		case telnetIAC:
			buf.WriteByte(telnetIAC)
			buf.WriteByte(telnetIAC)
		default:
			buf.WriteByte(b)
		}
		prev = b
	}
	return buf.Bytes()
}
