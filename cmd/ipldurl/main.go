// Command ipldurl is a small demonstration CLI exercising the resolver
// and patcher against an in-memory store. It is not part of the core
// library; the core never logs or parses flags itself.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ipldurl/resolve/pkg/blockstore"
	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/nodeutil"
	"github.com/ipldurl/resolve/pkg/patch"
	"github.com/ipldurl/resolve/pkg/resolver"
	"github.com/ipldurl/resolve/pkg/system"
	"github.com/ipldurl/resolve/pkg/urlmodel"
)

var store = blockstore.NewMemory()
var sys = system.New(store)

func must(err error) {
	if err != nil {
		log.Fatal().Msgf("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ipldurl",
	Short: "Resolve and patch content-addressed DAGs over ipld:// URLs",
}

var codecFlag string

var putCmd = &cobra.Command{
	Use:   "put <json-file>",
	Short: "Decode a JSON value and store it as a block, printing its ipld:// URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		must(err)

		var v any
		must(json.Unmarshal(raw, &v))

		n, err := nodeutil.AnyToNode(v)
		must(err)

		enc := ipldcid.Encoding(codecFlag)
		c, err := store.SaveNode(context.Background(), n, enc)
		must(err)

		fmt.Printf("ipld://%s/\n", c.String())
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve an ipld:// URL and print the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		u, err := urlmodel.Parse(args[0])
		must(err)

		result, err := resolver.Resolve(context.Background(), sys, u, resolver.Options{})
		must(err)

		if result.IsLink() {
			fmt.Printf("ipld://%s/\n", result.Link.String())
			return
		}
		v, err := nodeutil.NodeToAny(result.Node)
		must(err)
		out, err := json.MarshalIndent(printableJSON(v), "", "  ")
		must(err)
		fmt.Println(string(out))
	},
}

var patchCmd = &cobra.Command{
	Use:   "patch <url> <patchset-file>",
	Short: "Apply a JSON patch set to an ipld:// URL and print the resulting URL",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		u, err := urlmodel.Parse(args[0])
		must(err)

		raw, err := os.ReadFile(args[1])
		must(err)

		var ops []struct {
			Op    string `json:"op"`
			Path  string `json:"path"`
			From  string `json:"from"`
			Value any    `json:"value"`
		}
		must(json.Unmarshal(raw, &ops))

		patchset := make([]patch.Operation, len(ops))
		for i, op := range ops {
			patchset[i] = patch.Operation{
				Op:    patch.Op(op.Op),
				Path:  op.Path,
				From:  op.From,
				Value: op.Value,
			}
		}

		newURL, err := patch.Apply(context.Background(), sys, u, patchset)
		must(err)
		fmt.Println(newURL.String())
	},
}

// printableJSON converts nodeutil's order-preserving OrderedMap into a
// plain map for json.Marshal, which has no notion of field order; the
// CLI's printed output is for human inspection, not a round-trippable
// encoding.
func printableJSON(v any) any {
	switch t := v.(type) {
	case nodeutil.OrderedMap:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = printableJSON(e.Value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = printableJSON(e)
		}
		return out
	default:
		return v
	}
}

func init() {
	putCmd.Flags().StringVar(&codecFlag, "codec", "dag-cbor", "codec to store under: dag-cbor or dag-json")
	rootCmd.AddCommand(putCmd, resolveCmd, patchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Msgf("%v", err)
	}
}
