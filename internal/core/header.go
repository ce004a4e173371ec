package core

// HasHeader reports whether the first row of content should be treated as a
// header. A set userFlag always wins and the sample is not inspected.
func (d *Detector) HasHeader(content string, userFlag bool) bool {
	if userFlag {
		return true
	}
	return sniffHasHeader(d.Sample(content))
}

// HasHeader is Detector.HasHeader with the default sample size.
func HasHeader(content string, userFlag bool) bool {
	return userFlag || sniffHasHeader(prefixChars(content, DefaultSniffSampleSize))
}
