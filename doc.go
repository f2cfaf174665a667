// Package funcstream hosts user-supplied functions and modules on top of a
// message broker. A module is configured with source topics to consume
// from, an optional sink to forward results to, and an optional request
// topic for request/response traffic with correlated replies.
//
// A minimal function process looks like this:
//
//	funcstream.RegisterFunction("greet", func(ctx context.Context, fc *funcstream.Context, data map[string]any) (map[string]any, error) {
//		return map[string]any{"greeting": fmt.Sprintf("Hi, %v!", data["name"])}, nil
//	})
//
//	if err := funcstream.Run(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//
// The configuration file is read from the path in the FS_CONFIG_PATH
// environment variable. Transports are pluggable; importing a transport
// package registers it:
//
//	_ "github.com/funcstream/funcstream/transport/kafka"
package funcstream
