// Package features derives per-customer numeric features from the raw columns.
package features

import (
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/segmentation/internal/dataframe"
	"github.com/paveg/segmentation/internal/series"
)

// Column names read and written by AddDerived.
const (
	TotalAmount        = "Total_Amount"
	TotalPurchases     = "Total_Purchases"
	AvgTransaction     = "Avg_Transaction"
	CustomerValueScore = "Customer_Value_Score"
)

// valueScoreDivisor scales Total_Amount × Total_Purchases into a readable score.
const valueScoreDivisor = 1000.0

// AvgTransactionValue divides amount by purchases, counting zero purchases as one.
func AvgTransactionValue(amount, purchases float64) float64 {
	if purchases == 0 {
		purchases = 1
	}
	return amount / purchases
}

// CustomerValue returns amount × purchases / 1000.
func CustomerValue(amount, purchases float64) float64 {
	return amount * purchases / valueScoreDivisor
}

// AddDerived appends Avg_Transaction and Customer_Value_Score to df in place.
// Missing inputs propagate as NaN.
func AddDerived(df *dataframe.DataFrame, mem memory.Allocator) error {
	amounts, err := df.Float64Column(TotalAmount)
	if err != nil {
		return err
	}
	purchases, err := df.Float64Column(TotalPurchases)
	if err != nil {
		return err
	}

	avg := make([]float64, len(amounts))
	score := make([]float64, len(amounts))
	for i := range amounts {
		avg[i] = AvgTransactionValue(amounts[i], purchases[i])
		score[i] = CustomerValue(amounts[i], purchases[i])
	}

	if err := df.SetColumn(series.New(AvgTransaction, avg, mem)); err != nil {
		return err
	}
	return df.SetColumn(series.New(CustomerValueScore, score, mem))
}
