// Package retdec is a Go client for the RetDec decompilation service.
//
// # Quick Start
//
// Start a decompilation, wait for it, and fetch the decompiled code:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//		"os"
//
//		retdec "github.com/retdec/retdec-golang"
//	)
//
//	func main() {
//		decompiler, err := retdec.NewDecompiler(
//			os.Getenv("RETDEC_API_KEY"),
//			"", // apiURL (optional)
//		)
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer decompiler.Close()
//
//		d, err := decompiler.RunDecompilation(retdec.DecompilationArgs{
//			InputFile: retdec.FileUpload{Path: "prog.exe"},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		err = d.WaitUntilFinished(retdec.WaitOptions{
//			Callback: func(d *retdec.Decompilation) {
//				if st, ok := d.LastStatus(); ok {
//					fmt.Printf("%d%%\n", st.Completion)
//				}
//			},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		out, err := d.GetOutputHLL()
//		if err != nil {
//			log.Fatal(err)
//		}
//		code, err := out.ReadAll()
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Printf("%s:\n%s", out.Name(), code)
//	}
//
// # Failures
//
// A decompilation that the service reports as failed makes WaitUntilFinished
// return a *DecompilationFailedError. Pass HandleFailure or IgnoreFailure in
// WaitOptions.OnFailure to handle the failure differently. HTTP errors are
// *AuthenticationError for a rejected API key and *UnknownAPIError for
// everything else the service reports.
//
// # Environment Variables
//
//   - RETDEC_API_KEY: your RetDec API key
//   - RETDEC_API_URL: optional API URL (defaults to https://retdec.com/service/api)
//   - RETDEC_TIMEOUT: optional request timeout (defaults to 60s)
//   - RETDEC_WAIT_INTERVAL: optional pause between status checks (defaults to 5s)
//   - RETDEC_CONFIG: optional path to a YAML config file
package retdec
