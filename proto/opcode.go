package proto

const (
	// SM_DETACH_STATUS is a server message.
	//
	// Data structure:
	//  0 byte: uint8, 1 detached 0 attached
	SM_DETACH_STATUS uint16 = iota + 1

	// SM_ATTACH_ACK is a server message.
	//
	// Data structure:
	//  0 byte: uint8, 1 accept, otherwise denied
	//  1+ byte: []byte, reason for denial
	SM_ATTACH_ACK

	// SM_OUTPUT is a server message carrying terminal output for the
	// attached client.
	//
	// Data structure:
	//  []byte, raw display bytes (already charset-decoded)
	SM_OUTPUT

	// CM_SCREEN_SIZE is a client message.
	//
	// Data structure:
	//  0-1 byte: uint16, screen rows number
	//  2-3 byte: uint16, screen columns number
	CM_SCREEN_SIZE

	// CM_USER_INPUT is a client message.
	//
	// Data structure:
	//  []byte, one input line
	CM_USER_INPUT

	// CM_QUERY_DETACH_STATUS is a client message with no data.
	CM_QUERY_DETACH_STATUS

	// CM_ATTACH_REQ is a client message.
	//
	// Data structure:
	//  0 byte: uint8, 1 detach any other client and attach, 0 only attach
	CM_ATTACH_REQ
)
