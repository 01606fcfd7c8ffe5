// Package fifo provides a fixed-capacity byte FIFO with edge-triggered
// notifications.
//
//	f := fifo.New(1024)
//	f.OnReadable(func(readable bool) { ... })
//	f.OnWritable(func(writable bool) { ... })
//
//	f.Write([]byte("hello"))      // readable(true)
//	n := f.Read(p)                 // readable(false) once drained
//
// Socket I/O works on the contiguous regions directly:
//
//	n, _ := sock.ReceiveBytes(f.Writable())
//	f.Advance(n)
//
//	n, _ = sock.SendBytes(f.Readable())
//	f.Drain(n)
//
// Observers run synchronously on the mutating goroutine in registration
// order.
package fifo
