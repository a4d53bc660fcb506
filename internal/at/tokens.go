package at

// Command lines, without the line terminator which is added by the Session.
const (
	CmdSync         = "AT"
	CmdEchoOff      = "ATE0"
	CmdPinStatus    = "AT+CPIN?"
	CmdEnterPin     = `AT+CPIN="%s"`
	CmdRegStatus    = "AT+CREG?"
	CmdRegReport    = "AT+CREG=%d"
	CmdFlightOn     = "AT+CFUN=4"
	CmdFlightOff    = "AT+CFUN=1"
	CmdSleepOn      = "AT+CSCLK=2"
	CmdSleepOff     = "AT+CSCLK=0"
	CmdFixBaud      = "AT+IPR=%d"
	CmdSaveConfig   = "AT&W"
	CmdRingOnURC    = "AT+CFGRI=1"
	CmdLEDOff       = "AT+CNETLIGHT=0"
	CmdCallerID     = "AT+CLIP=1"
	CmdHangup       = "ATH"
	CmdTextMode     = "AT+CMGF=1"
	CmdDeleteAllSMS = `AT+CMGDA="DEL ALL"`
	CmdSendSMS      = `AT+CMGS="%s"`
	CmdBearerParam  = `AT+SAPBR=3,1,"%s","%s"`
	CmdBearerOpen   = "AT+SAPBR=1,1"
	CmdBearerQuery  = "AT+SAPBR=2,1"
	CmdBearerClose  = "AT+SAPBR=0,1"
	CmdCellLocation = "AT+CIPGSMLOC=1,1"
	CmdBattery      = "AT+CBC"
)

// Response tokens.
const (
	OK          = "OK"
	ERROR       = "ERROR"
	CmeError    = "+CME ERROR:"
	CmsError    = "+CMS ERROR:"
	Ring        = "RING"
	NoCarrier   = "NO CARRIER"
	Clip        = "+CLIP:"
	PinReady    = "+CPIN: READY"
	PinRequired = "+CPIN: SIM PIN"
	PinNotReady = "+CPIN: NOT READY"
	Reg         = "+CREG:"
	BearerUp    = "+SAPBR: 1,1"
	CellLoc     = "+CIPGSMLOC:"
	Battery     = "+CBC:"
	SMSSent     = "+CMGS:"
	NewSMS      = "+CMTI:"
	ModemReady  = "RDY"
	UnderVolt   = "UNDER-VOLTAGE"
	OverVolt    = "OVER-VOLTAGE"
	PowerDown   = "NORMAL POWER DOWN"

	// CtrlZ terminates an SMS body.
	CtrlZ = "\x1a"
)

// Terminator ends every command line.
const Terminator = "\r\n"

// FailureTokens are the final result codes that indicate a command failed.
var FailureTokens = []string{ERROR, CmeError, CmsError}

// DefaultURCs are the prefixes of unsolicited lines that are queued, rather
// than discarded, when they arrive while a command is awaiting its response.
var DefaultURCs = []string{
	Ring,
	Clip,
	NewSMS,
	Reg,
	PinNotReady,
	ModemReady,
	UnderVolt,
	OverVolt,
	PowerDown,
}
