package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/larrabee/s3file/pipeline"
)

func printProgress(received, total int64) {
	if total > 0 {
		_, _ = fmt.Fprintf(live, "Downloaded: %s / %s (%.f%%)\n", humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total)), float64(received)*100/float64(total))
		return
	}
	_, _ = fmt.Fprintf(live, "Downloaded: %s\n", humanize.Bytes(uint64(received)))
}

func printFinalStats(res pipeline.Result, status syncStatus, err error) {
	for _, val := range res.Steps {
		log.Infof("%d %s: %s", val.Num, val.Name, val.Duration)
	}

	switch status {
	case syncStatusOk:
		if res.Changed {
			log.Infof("Sync Done, file changed (etag %s)", res.ETag)
		} else {
			log.Infof("Sync Done, file is up to date")
		}
	case syncStatusFailed:
		log.Errorf("Sync Failed: %s", err)
		logHint(err)
	case syncStatusAborted:
		log.Warnf("Sync Aborted")
	case syncStatusConfError:
		log.Errorf("Sync Configuration error: %s", err)
	default:
		log.Warnf("Sync Unknown status")
	}
}
