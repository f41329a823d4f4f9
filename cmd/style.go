package main

import (
	"strconv"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/product-ledger/ledger"
	"github.com/luca-patrignani/product-ledger/product"
)

func getBlockPanel(b ledger.Block) pterm.Panel {
	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	title := pterm.LightYellow("|BLOCK " + strconv.Itoa(b.Index) + "|")
	info := pterm.Sprintfln("Hash: %s", pterm.LightCyan(b.Hash))
	info += pterm.Sprintfln("Previous: %s", b.PreviousHash)
	info += pterm.Sprintfln("Timestamp: %s", b.Timestamp.Format("2006-01-02 15:04:05.000000 MST"))
	info += printProductTable(b.Products)
	return pterm.Panel{Data: pbox.WithTitle(title).WithTitleTopLeft().Sprint(info)}
}

func printProductTable(products []product.Fields) string {
	if len(products) == 0 {
		return pterm.Gray("no products")
	}
	data := pterm.TableData{{"Name", "Manufacturer", "Serial"}}
	for _, p := range products {
		data = append(data, []string{p.Name, p.Manufacturer, p.SerialNumber})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err.Error()
	}
	return table
}

func getFakesPanel(fakes []product.Product) pterm.Panel {
	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)
	if len(fakes) == 0 {
		return pterm.Panel{Data: pbox.WithTitle(pterm.LightGreen("|FAKES|")).WithTitleTopCenter().Sprint("No fake products found")}
	}
	info := ""
	for _, p := range fakes {
		info += pterm.Sprintfln("%s", pterm.LightRed(p.String()))
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightRed("|FAKES|")).WithTitleTopCenter().Sprint(info)}
}

func printChain(blocks []ledger.Block, additionalPanel ...pterm.Panel) error {
	var rows [][]pterm.Panel
	for _, b := range blocks {
		rows = append(rows, []pterm.Panel{getBlockPanel(b)})
	}
	if len(additionalPanel) > 0 {
		rows = append(rows, additionalPanel)
	}
	return pterm.DefaultPanel.WithPanels(rows).Render()
}
