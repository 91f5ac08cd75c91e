// Package checksum hashes fetched object content so a run's verbose log
// identifies exactly which snapshot bytes were loaded.
//
//	calc := checksum.New()
//	sum := calc.Calculate(data)
//
// SHA256 is safe for concurrent use by multiple goroutines.
package checksum
