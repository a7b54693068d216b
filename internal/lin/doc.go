// Package lin builds LIN bus and node diagnostic requests for a compact LIN
// master and interprets the slave responses that come back.
//
// The package has two layers:
//
//   - The codec (codec.go) is transport independent. It prepends a service
//     identifier to request parameters and classifies a response as positive,
//     negative (0x7F) or unexpected.
//   - The bus operations (bus.go, diag.go) translate a request into an
//     endpoint/command/params task and hand it to any Tasker, normally a
//     *mcm.Master.
//
// # Response Classification
//
// A diagnostic response is checked in this order:
//
//	data[0] == 0x7F                 -> *NegativeResponseError{data[1], data[2]}
//	data[0] != (sid + 0x40) & 0xFF  -> *UnexpectedResponseIDError{data[0]}
//	otherwise                       -> data[1:]
//
// # Example
//
//	data, err := lin.ReadByID(ctx, master, 0x7F, 19200, lin.IDProductIdentification)
//	var nrc *lin.NegativeResponseError
//	if errors.As(err, &nrc) {
//	    fmt.Println(nrc.Name())
//	}
package lin
