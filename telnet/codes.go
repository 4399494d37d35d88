package telnet

import "strconv"

// RFC 854 command bytes. Everything above SB only has meaning after an IAC.
const (
	SE   byte = 240 // 0xF0	Subnegotiation End
	NOP  byte = 241 // 0xF1	No Operation
	DM   byte = 242 // 0xF2	Data Mark
	BRK  byte = 243 // 0xF3	Break
	IP   byte = 244 // 0xF4	Interrupt Process
	AO   byte = 245 // 0xF5	Abort Output
	AYT  byte = 246 // 0xF6	Are You There
	EC   byte = 247 // 0xF7	Erase Character
	EL   byte = 248 // 0xF8	Erase Line
	GA   byte = 249 // 0xF9	Go Ahead
	SB   byte = 250 // 0xFA	Subnegotiation Begin
	WILL byte = 251 // 0xFB	Will do something
	WONT byte = 252 // 0xFC	Won't do something
	DO   byte = 253 // 0xFD	Do something
	DONT byte = 254 // 0xFE	Don't do something
	IAC  byte = 255 // 0xFF	Interpret as Command
)

// Option bytes for the two options this client negotiates.
const (
	OptEcho            byte = 1 // [RFC857]  Echo
	OptSuppressGoAhead byte = 3 // [RFC858]  Suppress Go Ahead
)

var cmdName = map[byte]string{
	SE:   "SE",
	NOP:  "NOP",
	DM:   "DM",
	BRK:  "BRK",
	IP:   "IP",
	AO:   "AO",
	AYT:  "AYT",
	EC:   "EC",
	EL:   "EL",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

var optName = map[byte]string{
	OptEcho:            "ECHO",
	OptSuppressGoAhead: "SUPPRESS-GO-AHEAD",
}

// CommandName returns the mnemonic for a command byte, or its decimal
// value when it has none.
func CommandName(b byte) string {
	if n, ok := cmdName[b]; ok {
		return n
	}
	return strconv.Itoa(int(b))
}

// OptionName returns the mnemonic for an option byte, or its decimal
// value when it has none.
func OptionName(b byte) string {
	if n, ok := optName[b]; ok {
		return n
	}
	return strconv.Itoa(int(b))
}
