package compression_test

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/compression"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// ExamplePack compresses a payload into a pooled buffer and back.
func ExamplePack() {
	bp := bytespool.New(bytespool.WithPoolOptions(pool.WithLogger[[]byte](zap.NewNop())))
	defer bp.Close()

	codec, err := compression.NewCodec(&compression.Config{Algorithm: compression.Zstd})
	if err != nil {
		panic(err)
	}
	defer codec.Close()

	packed, err := compression.Pack(bp, codec, []byte("hello hello hello hello"))
	if err != nil {
		panic(err)
	}
	defer packed.Release()

	unpacked, err := compression.Unpack(bp, codec, packed.Bytes())
	if err != nil {
		panic(err)
	}
	defer unpacked.Release()

	fmt.Println(unpacked)

	// Output:
	// hello hello hello hello
}
