package metrics

// InitializeMetrics pre-populates the known label combinations so that every
// metric family is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics(resolutions []string) {
	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "create_video", "get_video",
		"set_video_status", "set_video_duration", "set_video_thumbnail",
		"delete_video", "upsert_rendition", "get_rendition",
		"set_rendition_status", "complete_rendition", "list_renditions"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	// --- Queue job types ---
	for _, jobType := range []string{"transcode", "thumbnail"} {
		QueueJobsEnqueued.WithLabelValues(jobType)
		QueueJobDuration.WithLabelValues(jobType)
		for _, outcome := range []string{"completed", "retried", "failed"} {
			QueueJobsProcessed.WithLabelValues(jobType, outcome)
		}
	}

	// --- Pipeline ---
	for _, res := range resolutions {
		EncodeDuration.WithLabelValues(res)
		EncodesTotal.WithLabelValues(res, "success")
		EncodesTotal.WithLabelValues(res, "error")
	}

	ThumbnailsTotal.WithLabelValues("success")
	ThumbnailsTotal.WithLabelValues("error")

	for _, step := range []string{"source", "thumbnail", "renditions"} {
		CleanupFailures.WithLabelValues(step)
	}
}
