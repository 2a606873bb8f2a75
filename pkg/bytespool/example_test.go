package bytespool_test

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// Example shows a frame being built, frozen and split into views without copying.
func Example() {
	bp := bytespool.New(
		bytespool.WithCapacity(256),
		bytespool.WithPoolOptions(pool.WithLogger[[]byte](zap.NewNop())),
	)
	defer bp.Close()

	buf := bp.Lend()
	buf.WriteString("HEADER|payload")
	frame := buf.Freeze()

	header := frame.Slice(bytespool.To(6))
	body := frame.Slice(bytespool.From(7))
	frame.Release()

	fmt.Println(header, body, body.RefCount())
	header.Release()
	body.Release()

	fmt.Println("idle:", bp.Stats().Idle)

	// Output:
	// HEADER payload 2
	// idle: 1
}

// ExampleBytesMut_FreezeRange freezes part of a buffer.
func ExampleBytesMut_FreezeRange() {
	buf := bytespool.NewBytesMut(nil)
	buf.Append([]byte{0, 1, 2, 3, 4})

	view := buf.FreezeRange(bytespool.SpanInclusive(1, 3))
	defer view.Release()
	fmt.Println(view.Bytes())

	// Output:
	// [1 2 3]
}
