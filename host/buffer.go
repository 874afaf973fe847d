package host

import "github.com/datatalking/mldb"

// AllocHandle allocates a zeroed device buffer of count elements of
// elemSize bytes each and wraps it as a fresh MemoryHandle with a
// reference count of one.
func (c *Context) AllocHandle(elementType mldb.TypeId, elemSize uint, count uint64) mldb.MemoryHandle {
	lengthBytes := count * uint64(elemSize)
	id := c.AllocBuffer(lengthBytes)
	return mldb.NewMemoryHandle(BackendName, id, 0, lengthBytes, elementType)
}

// ReadHandle copies a device buffer's current contents into a fresh byte
// slice. The host back-end's device memory is already host memory, so no
// Pin is required to read it outside of a bound call.
func (c *Context) ReadHandle(handle mldb.MemoryHandle) ([]byte, error) {
	if handle.Backend != BackendName {
		return nil, &mldb.BackendMismatch{Expected: BackendName, Got: handle.Backend}
	}
	buf := c.bufferBytes(handle.DeviceBufferID)
	if buf == nil {
		return nil, mldb.WrapperError("host: unknown buffer")
	}
	start := handle.Offset
	end := start + handle.LengthBytes
	if end > uint64(len(buf)) {
		return nil, mldb.WrapperError("host: handle range exceeds buffer")
	}
	out := make([]byte, handle.LengthBytes)
	copy(out, buf[start:end])
	return out, nil
}

// WriteHandle overwrites a device buffer's contents from data, which must
// fit within the handle's declared range.
func (c *Context) WriteHandle(handle mldb.MemoryHandle, data []byte) error {
	if handle.Backend != BackendName {
		return &mldb.BackendMismatch{Expected: BackendName, Got: handle.Backend}
	}
	buf := c.bufferBytes(handle.DeviceBufferID)
	if buf == nil {
		return mldb.WrapperError("host: unknown buffer")
	}
	start := handle.Offset
	end := start + handle.LengthBytes
	if end > uint64(len(buf)) || uint64(len(data)) > handle.LengthBytes {
		return mldb.WrapperError("host: handle range exceeds buffer")
	}
	copy(buf[start:end], data)
	return nil
}
