package web

// Single page converter with history and a live feed of conversions.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>fxconv</title>
  <style>
    body { font-family: 'Space Mono', monospace; max-width: 640px; margin: 2rem auto; color: #111; }
    form, section { border: 3px solid #111; padding: 1rem 1.5rem; margin-bottom: 1.5rem; box-shadow: 6px 6px 0 rgba(0,0,0,.12); }
    input, select, button { font: inherit; padding: .3rem .5rem; }
    #error { color: #b00020; min-height: 1.2em; }
    #result { font-size: 1.4rem; font-weight: bold; }
    table { width: 100%; border-collapse: collapse; }
    td { padding: .2rem 0; border-bottom: 1px dashed #ccc; }
  </style>
</head>
<body>
  <form id="convert">
    <input id="amount" placeholder="Amount" autocomplete="off" />
    <select id="from"></select>
    <button type="button" id="swap">&#8646;</button>
    <select id="to"></select>
    <button type="submit">Convert</button>
    <p id="error"></p>
    <p id="result"></p>
    <p id="rates"></p>
  </form>
  <section>
    <h3>Recent conversions <button type="button" id="clear">Clear</button></h3>
    <table id="history"></table>
  </section>
  <section>
    <h3>Live feed</h3>
    <table id="feed"></table>
  </section>
  <script>
    const currencies = ["USD","EUR","GBP","JPY","CHF","CAD","AUD","NZD","CNY","HKD","SGD","SEK","NOK","DKK","PLN","CZK","HUF","TRY","INR","BRL","MXN","ZAR","KRW"];
    const $ = (id) => document.getElementById(id);
    for (const sel of [$("from"), $("to")]) {
      for (const c of currencies) sel.add(new Option(c, c));
    }
    let errorTimer;
    function showError(msg) {
      $("error").textContent = msg;
      clearTimeout(errorTimer);
      errorTimer = setTimeout(() => { $("error").textContent = ""; }, 5000);
    }
    function row(e) {
      return "<tr><td>" + e.amount + " " + (e.fromCurrency || e.from) + "</td><td>&rarr;</td><td>" +
        (e.convertedAmount || e.converted_amount) + " " + (e.toCurrency || e.to) + "</td><td>" + (e.timestamp || e.computed_at) + "</td></tr>";
    }
    async function loadHistory() {
      const res = await fetch("/api/history");
      const entries = await res.json();
      $("history").innerHTML = entries.map(row).join("");
    }
    async function savePrefs() {
      await fetch("/api/preferences", { method: "PUT", body: JSON.stringify({ from: $("from").value, to: $("to").value }) });
    }
    async function loadPrefs() {
      const prefs = await (await fetch("/api/preferences")).json();
      $("from").value = prefs.from || "USD";
      $("to").value = prefs.to || "EUR";
    }
    $("from").onchange = savePrefs;
    $("to").onchange = savePrefs;
    $("swap").onclick = () => { const f = $("from").value; $("from").value = $("to").value; $("to").value = f; savePrefs(); };
    $("clear").onclick = async () => {
      if (!confirm("Clear conversion history?")) return;
      await fetch("/api/history", { method: "DELETE" });
      loadHistory();
    };
    $("convert").onsubmit = async (ev) => {
      ev.preventDefault();
      const res = await fetch("/api/convert", { method: "POST", body: JSON.stringify({ amount: $("amount").value, from: $("from").value, to: $("to").value }) });
      const body = await res.json();
      if (!res.ok) { showError(body.error); return; }
      $("result").textContent = body.display;
      $("rates").textContent = "1 " + body.from + " = " + body.rate + " " + body.to + " | 1 " + body.to + " = " + body.inverse_rate + " " + body.from;
      loadHistory();
    };
    const stream = new EventSource("/api/conversions/stream");
    stream.addEventListener("conversion", (ev) => {
      $("feed").insertAdjacentHTML("afterbegin", row(JSON.parse(ev.data)));
    });
    loadPrefs();
    loadHistory();
  </script>
</body>
</html>
`
